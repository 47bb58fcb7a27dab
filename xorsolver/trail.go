package xorsolver

import "github.com/xDarkicex/xorprop/gf2"

// valueTrailEntry is one entry of the value trail: the value a variable held
// at prevLevel before flip_value most recently overwrote it on a new level.
type valueTrailEntry struct {
	prevLevel uint32
	varIndex  uint32
	prevValue gf2.Value
}

// trailOffset snapshots both trails' lengths at the moment a decision level
// was first entered, so Undo knows where to truncate back to.
type trailOffset struct {
	level      uint32
	bound      uint32
	assignment uint32
}
