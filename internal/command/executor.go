package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/mudra/internal/player"
)

// Backend operations reported in ExecError.Op.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpToggle = "toggle"
)

const (
	minVolume = 0
	maxVolume = 100
)

// ExecError reports which part of a command failed.
type ExecError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Outcome describes what an executed command changed. Before and After hold
// the volume in percent or the position in seconds; both are zero for Pause.
type Outcome struct {
	Command Command
	Before  float64
	After   float64
}

// Executor applies commands to a player backend. It is not safe for
// concurrent use; the control loop owns it.
type Executor struct {
	backend player.Backend
	logger  *slog.Logger
}

// NewExecutor creates an executor for backend.
func NewExecutor(backend player.Backend, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{backend: backend, logger: logger}
}

// Execute runs cmd once. Failures are logged and returned as *ExecError; the
// command is never retried.
func (e *Executor) Execute(ctx context.Context, cmd Command) (Outcome, error) {
	var (
		out Outcome
		err error
	)
	switch cmd.Kind {
	case Pause:
		out, err = e.togglePause(ctx, cmd)
	case VolumeUp, VolumeDown:
		out, err = e.adjustVolume(ctx, cmd)
	case SeekForward, SeekBackward:
		out, err = e.seek(ctx, cmd)
	default:
		err = &ExecError{Kind: cmd.Kind, Op: OpWrite, Err: fmt.Errorf("unknown command kind %d", int(cmd.Kind))}
	}

	if err != nil {
		e.logger.Error(controlErrorMessage(cmd.Kind), "command", cmd.String(), "error", err)
		return Outcome{Command: cmd}, err
	}
	return out, nil
}

func (e *Executor) togglePause(ctx context.Context, cmd Command) (Outcome, error) {
	if err := e.backend.TogglePause(ctx); err != nil {
		return Outcome{}, &ExecError{Kind: cmd.Kind, Op: OpToggle, Err: err}
	}
	e.logger.Info("playback toggled")
	return Outcome{Command: cmd}, nil
}

func (e *Executor) adjustVolume(ctx context.Context, cmd Command) (Outcome, error) {
	current, err := e.backend.Volume(ctx)
	if err != nil {
		return Outcome{}, &ExecError{Kind: cmd.Kind, Op: OpRead, Err: err}
	}

	next := current + cmd.Step
	if cmd.Kind == VolumeDown {
		next = current - cmd.Step
	}
	next = min(max(next, minVolume), maxVolume)

	if err := e.backend.SetVolume(ctx, next); err != nil {
		return Outcome{}, &ExecError{Kind: cmd.Kind, Op: OpWrite, Err: err}
	}

	if cmd.Kind == VolumeUp {
		e.logger.Info(fmt.Sprintf("volume increased to %d", next), "previous", current)
	} else {
		e.logger.Info(fmt.Sprintf("volume decreased to %d", next), "previous", current)
	}
	return Outcome{Command: cmd, Before: float64(current), After: float64(next)}, nil
}

// seek moves relative to the current position. Backward seeks stop at 0;
// forward seeks are not bounded here, the player clamps at the media end.
func (e *Executor) seek(ctx context.Context, cmd Command) (Outcome, error) {
	current, err := e.backend.Position(ctx)
	if err != nil {
		return Outcome{}, &ExecError{Kind: cmd.Kind, Op: OpRead, Err: err}
	}

	next := current + cmd.Seconds
	if cmd.Kind == SeekBackward {
		next = max(current-cmd.Seconds, 0)
	}

	if err := e.backend.SetPosition(ctx, next); err != nil {
		return Outcome{}, &ExecError{Kind: cmd.Kind, Op: OpWrite, Err: err}
	}

	if cmd.Kind == SeekForward {
		e.logger.Info(fmt.Sprintf("skipped forward to %.1fs", next), "previous", current)
	} else {
		e.logger.Info(fmt.Sprintf("skipped backward to %.1fs", next), "previous", current)
	}
	return Outcome{Command: cmd, Before: current, After: next}, nil
}

func controlErrorMessage(k Kind) string {
	switch k {
	case VolumeUp, VolumeDown:
		return "volume control error"
	case SeekForward, SeekBackward:
		return "seek control error"
	case Pause:
		return "pause control error"
	default:
		return "command error"
	}
}
