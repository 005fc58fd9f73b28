package command

import (
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
)

func TestMap(t *testing.T) {
	steps := DefaultSteps()
	tests := []struct {
		newCode gesture.Code
		want    Command
		ok      bool
	}{
		{0, Command{}, false},
		{1, Command{Kind: Pause}, true},
		{2, Command{Kind: VolumeUp, Step: 10}, true},
		{3, Command{Kind: VolumeDown, Step: 10}, true},
		{4, Command{Kind: SeekForward, Seconds: 10}, true},
		{5, Command{Kind: SeekBackward, Seconds: 10}, true},
		{6, Command{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, ok := Map(gesture.Transition{Old: 0, New: tt.newCode}, steps)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Map(0->%d) = %v, %v; want %v, %v", tt.newCode, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestMap_IgnoresOldCode(t *testing.T) {
	steps := DefaultSteps()
	for newCode := gesture.Code(0); newCode <= gesture.MaxCode; newCode++ {
		want, wantOK := Map(gesture.Transition{Old: 0, New: newCode}, steps)
		for old := gesture.Code(0); old <= gesture.MaxCode; old++ {
			got, ok := Map(gesture.Transition{Old: old, New: newCode}, steps)
			if got != want || ok != wantOK {
				t.Errorf("Map(%d->%d) = %v, %v; want %v, %v", old, newCode, got, ok, want, wantOK)
			}
		}
	}
}

func TestMap_CustomSteps(t *testing.T) {
	steps := Steps{Volume: 5, SeekSeconds: 30}

	cmd, _ := Map(gesture.Transition{New: 3}, steps)
	if cmd.Step != 5 {
		t.Errorf("volume step = %d, want 5", cmd.Step)
	}
	cmd, _ = Map(gesture.Transition{New: 4}, steps)
	if cmd.Seconds != 30 {
		t.Errorf("seek seconds = %f, want 30", cmd.Seconds)
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Kind: Pause}, "pause"},
		{Command{Kind: VolumeUp, Step: 10}, "volume_up(10)"},
		{Command{Kind: SeekBackward, Seconds: 2.5}, "seek_backward(2.5s)"},
		{Command{Kind: Kind(42)}, "kind(42)"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
