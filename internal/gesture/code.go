// Package gesture classifies hand landmark snapshots into finger-count gesture codes
// and filters the per-frame code stream into transitions.
package gesture

import "fmt"

// Code is the number of raised digits seen in one frame, in [0, MaxCode].
// Zero also stands for "no hand in frame".
type Code int

const (
	// None means no hand or no raised digits.
	None Code = 0
	// MaxCode is the largest code a hand can produce.
	MaxCode Code = 5
)

// Clamp limits c to the closed range [None, MaxCode].
func (c Code) Clamp() Code {
	switch {
	case c < None:
		return None
	case c > MaxCode:
		return MaxCode
	default:
		return c
	}
}

// Valid reports whether c is inside [None, MaxCode].
func (c Code) Valid() bool {
	return c >= None && c <= MaxCode
}

// Transition is a change of the stable gesture code between two frames.
type Transition struct {
	Old Code `json:"old"`
	New Code `json:"new"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%d->%d", t.Old, t.New)
}
