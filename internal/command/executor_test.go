package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/player"
)

func newTestExecutor(backend player.Backend) (*Executor, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewExecutor(backend, logger), &buf
}

func TestExecutor_Volume(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		cmd     Command
		want    int
		logLine string
	}{
		{"up", 60, Command{Kind: VolumeUp, Step: 10}, 70, "volume increased to 70"},
		{"up clamps at 100", 95, Command{Kind: VolumeUp, Step: 10}, 100, "volume increased to 100"},
		{"down", 50, Command{Kind: VolumeDown, Step: 10}, 40, "volume decreased to 40"},
		{"down clamps at 0", 4, Command{Kind: VolumeDown, Step: 10}, 0, "volume decreased to 0"},
		{"out of range reading is clamped", 130, Command{Kind: VolumeDown, Step: 10}, 100, "volume decreased to 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := player.NewMemory(tt.start, 0)
			exec, logs := newTestExecutor(backend)

			out, err := exec.Execute(context.Background(), tt.cmd)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if out.After != float64(tt.want) || out.Before != float64(tt.start) {
				t.Errorf("outcome = %+v, want %d -> %d", out, tt.start, tt.want)
			}
			if got, _ := backend.Volume(context.Background()); got != tt.want {
				t.Errorf("backend volume = %d, want %d", got, tt.want)
			}
			if !strings.Contains(logs.String(), tt.logLine) {
				t.Errorf("log %q missing %q", logs.String(), tt.logLine)
			}
		})
	}
}

func TestExecutor_Seek(t *testing.T) {
	tests := []struct {
		name    string
		start   float64
		cmd     Command
		want    float64
		logLine string
	}{
		{"forward from zero", 0, Command{Kind: SeekForward, Seconds: 10}, 10, "skipped forward to 10.0s"},
		{"forward is unbounded", 595, Command{Kind: SeekForward, Seconds: 10}, 605, "skipped forward to 605.0s"},
		{"backward", 42.5, Command{Kind: SeekBackward, Seconds: 10}, 32.5, "skipped backward to 32.5s"},
		{"backward clamps at zero", 3, Command{Kind: SeekBackward, Seconds: 10}, 0, "skipped backward to 0.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := player.NewMemory(50, tt.start)
			exec, logs := newTestExecutor(backend)

			if _, err := exec.Execute(context.Background(), tt.cmd); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got, _ := backend.Position(context.Background()); got != tt.want {
				t.Errorf("backend position = %f, want %f", got, tt.want)
			}
			if !strings.Contains(logs.String(), tt.logLine) {
				t.Errorf("log %q missing %q", logs.String(), tt.logLine)
			}
		})
	}
}

func TestExecutor_Pause(t *testing.T) {
	backend := player.NewMemory(50, 0)
	exec, logs := newTestExecutor(backend)

	if _, err := exec.Execute(context.Background(), Command{Kind: Pause}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !backend.Paused() {
		t.Error("backend not paused")
	}
	if !strings.Contains(logs.String(), "playback toggled") {
		t.Errorf("log %q missing toggle line", logs.String())
	}
}

func TestExecutor_Errors(t *testing.T) {
	boom := errors.New("player went away")
	tests := []struct {
		name    string
		failOn  string
		cmd     Command
		wantOp  string
		logLine string
	}{
		{"volume read", "Volume", Command{Kind: VolumeUp, Step: 10}, OpRead, "volume control error"},
		{"volume write", "SetVolume", Command{Kind: VolumeDown, Step: 10}, OpWrite, "volume control error"},
		{"seek read", "Position", Command{Kind: SeekForward, Seconds: 10}, OpRead, "seek control error"},
		{"seek write", "SetPosition", Command{Kind: SeekBackward, Seconds: 10}, OpWrite, "seek control error"},
		{"toggle", "TogglePause", Command{Kind: Pause}, OpToggle, "pause control error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := player.NewMemory(50, 20)
			backend.FailOn(tt.failOn, boom)
			exec, logs := newTestExecutor(backend)

			_, err := exec.Execute(context.Background(), tt.cmd)
			var execErr *ExecError
			if !errors.As(err, &execErr) {
				t.Fatalf("expected *ExecError, got %v", err)
			}
			if execErr.Op != tt.wantOp || execErr.Kind != tt.cmd.Kind {
				t.Errorf("ExecError = {%v %s}, want {%v %s}", execErr.Kind, execErr.Op, tt.cmd.Kind, tt.wantOp)
			}
			if !errors.Is(err, boom) {
				t.Error("cause not unwrapped")
			}
			if !strings.Contains(logs.String(), tt.logLine) {
				t.Errorf("log %q missing %q", logs.String(), tt.logLine)
			}
		})
	}
}

func TestExecutor_ReadFailureSkipsWrite(t *testing.T) {
	backend := player.NewMemory(50, 20)
	backend.FailOn("Volume", player.ErrNotReady)
	exec, _ := newTestExecutor(backend)

	exec.Execute(context.Background(), Command{Kind: VolumeUp, Step: 10})

	for _, call := range backend.Calls() {
		if call == "SetVolume" {
			t.Fatal("SetVolume called after failed read")
		}
	}
}
