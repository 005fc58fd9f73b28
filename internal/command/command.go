// Package command turns gesture transitions into media commands and runs them
// against a player backend.
package command

import (
	"fmt"

	"github.com/ayusman/mudra/internal/gesture"
)

// Kind identifies a media command.
type Kind int

const (
	Pause Kind = iota + 1
	VolumeUp
	VolumeDown
	SeekForward
	SeekBackward
)

func (k Kind) String() string {
	switch k {
	case Pause:
		return "pause"
	case VolumeUp:
		return "volume_up"
	case VolumeDown:
		return "volume_down"
	case SeekForward:
		return "seek_forward"
	case SeekBackward:
		return "seek_backward"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is a single media action. Step is used by the volume kinds and
// Seconds by the seek kinds.
type Command struct {
	Kind    Kind
	Step    int
	Seconds float64
}

func (c Command) String() string {
	switch c.Kind {
	case VolumeUp, VolumeDown:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Step)
	case SeekForward, SeekBackward:
		return fmt.Sprintf("%s(%.1fs)", c.Kind, c.Seconds)
	default:
		return c.Kind.String()
	}
}

// Steps holds the per-command increments.
type Steps struct {
	Volume      int
	SeekSeconds float64
}

// DefaultSteps returns 10 volume points and 10 seconds.
func DefaultSteps() Steps {
	return Steps{Volume: 10, SeekSeconds: 10}
}

// Map returns the command for a transition. Only the new code matters; a
// transition into 0 (or an out of range code) maps to nothing.
func Map(t gesture.Transition, steps Steps) (Command, bool) {
	switch t.New {
	case 1:
		return Command{Kind: Pause}, true
	case 2:
		return Command{Kind: VolumeUp, Step: steps.Volume}, true
	case 3:
		return Command{Kind: VolumeDown, Step: steps.Volume}, true
	case 4:
		return Command{Kind: SeekForward, Seconds: steps.SeekSeconds}, true
	case 5:
		return Command{Kind: SeekBackward, Seconds: steps.SeekSeconds}, true
	default:
		return Command{}, false
	}
}
