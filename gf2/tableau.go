package gf2

import "sort"

// Tableau is a sparse boolean matrix stored as rows-of-sorted-column-indices
// and cols-of-sorted-row-indices. The two views are kept symmetric: (i, j) is
// present in rows[i] iff it is present in cols[j].
//
// Insertion is linear in row/column length and should be avoided outside of
// Set and Eliminate.
type Tableau struct {
	rows [][]uint32
	cols [][]uint32
}

// NewTableau returns an empty tableau.
func NewTableau() *Tableau {
	return &Tableau{}
}

func reserve(slots *[][]uint32, i uint32) {
	if uint32(len(*slots)) <= i {
		grown := make([][]uint32, i+1)
		copy(grown, *slots)
		*slots = grown
	}
}

func search(s []uint32, v uint32) (int, bool) {
	idx := sort.Search(len(s), func(k int) bool { return s[k] >= v })
	return idx, idx < len(s) && s[idx] == v
}

func insertSorted(s []uint32, v uint32) []uint32 {
	idx, found := search(s, v)
	if found {
		return s
	}
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func removeSorted(s []uint32, v uint32) []uint32 {
	idx, found := search(s, v)
	if !found {
		return s
	}
	return append(s[:idx], s[idx+1:]...)
}

// Contains reports whether cell (i, j) is set.
func (t *Tableau) Contains(i, j uint32) bool {
	if i >= uint32(len(t.rows)) {
		return false
	}
	_, found := search(t.rows[i], j)
	return found
}

// Set assigns bit to cell (i, j). Idempotent; setting bit=false removes the
// cell. Maintains row/column symmetry.
func (t *Tableau) Set(i, j uint32, bit bool) {
	if bit {
		reserve(&t.rows, i)
		reserve(&t.cols, j)
		t.rows[i] = insertSorted(t.rows[i], j)
		t.cols[j] = insertSorted(t.cols[j], i)
		return
	}
	if i < uint32(len(t.rows)) {
		t.rows[i] = removeSorted(t.rows[i], j)
	}
	if j < uint32(len(t.cols)) {
		t.cols[j] = removeSorted(t.cols[j], i)
	}
}

// UpdateRow visits the columns set in row i in ascending order. f returns
// whether to continue; traversal stops as soon as it returns false.
func (t *Tableau) UpdateRow(i uint32, f func(j uint32) bool) {
	if i >= uint32(len(t.rows)) {
		return
	}
	for _, j := range t.rows[i] {
		if !f(j) {
			return
		}
	}
}

// UpdateCol visits the rows set in column j in ascending order. Rows that no
// longer actually contain j (removed from the row list without the column
// list being updated) are lazily purged from the column list as they are encountered.
func (t *Tableau) UpdateCol(j uint32, f func(i uint32) bool) {
	if j >= uint32(len(t.cols)) {
		return
	}
	col := t.cols[j]
	write := 0
	stop := false
	for _, i := range col {
		if stop {
			col[write] = i
			write++
			continue
		}
		if !t.Contains(i, j) {
			continue // purge: row no longer has this column
		}
		col[write] = i
		write++
		if !f(i) {
			stop = true
		}
	}
	t.cols[j] = col[:write]
}

// Eliminate is the pivot step: every row k != i containing column j is
// replaced by (row k) XOR (row i), except that column j itself is retained
// in row k. Keeping j is what makes the swap sound: after a pivot the slot
// behind column j holds the freshly non-basic variable, and each affected
// row's equation now references it exactly once. Row i is unchanged.
func (t *Tableau) Eliminate(i, j uint32) {
	if i >= uint32(len(t.rows)) {
		return
	}
	rowI := t.rows[i]

	var toFix []uint32
	if j < uint32(len(t.cols)) {
		toFix = append(toFix, t.cols[j]...)
	}

	for _, k := range toFix {
		if k == i || !t.Contains(k, j) {
			continue
		}
		merged := mergeEliminated(t.rows[k], rowI, j)
		t.replaceRow(k, merged)
	}
}

// replaceRow swaps in a freshly computed row for k, updating every affected
// column's row list to match.
func (t *Tableau) replaceRow(k uint32, newRow []uint32) {
	old := t.rows[k]
	oi, ni := 0, 0
	for oi < len(old) || ni < len(newRow) {
		switch {
		case ni >= len(newRow) || (oi < len(old) && old[oi] < newRow[ni]):
			// column present in old row but not new: drop k from that column
			reserve(&t.cols, old[oi])
			t.cols[old[oi]] = removeSorted(t.cols[old[oi]], k)
			oi++
		case oi >= len(old) || newRow[ni] < old[oi]:
			// column present in new row but not old: add k to that column
			reserve(&t.cols, newRow[ni])
			t.cols[newRow[ni]] = insertSorted(t.cols[newRow[ni]], k)
			ni++
		default:
			oi++
			ni++
		}
	}
	reserve(&t.rows, k)
	t.rows[k] = newRow
}

// mergeEliminated returns the GF(2) sum of two sorted, deduplicated rows,
// except that the pivot column j survives even though it appears in both (a
// column present in both rows otherwise cancels).
func mergeEliminated(rowK, rowI []uint32, j uint32) []uint32 {
	out := make([]uint32, 0, len(rowK)+len(rowI))
	ki, ii := 0, 0
	for ki < len(rowK) && ii < len(rowI) {
		switch {
		case rowK[ki] < rowI[ii]:
			out = append(out, rowK[ki])
			ki++
		case rowI[ii] < rowK[ki]:
			out = append(out, rowI[ii])
			ii++
		default:
			if rowK[ki] == j {
				out = append(out, j)
			}
			ki++
			ii++
		}
	}
	out = append(out, rowK[ki:]...)
	out = append(out, rowI[ii:]...)
	return out
}

// Size returns the number of set cells. Linear in the size of the matrix.
func (t *Tableau) Size() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	return n
}

// Empty reports whether Size() == 0.
func (t *Tableau) Empty() bool {
	for _, row := range t.rows {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// Clear empties the tableau.
func (t *Tableau) Clear() {
	t.rows = nil
	t.cols = nil
}
