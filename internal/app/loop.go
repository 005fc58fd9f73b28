package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// DefaultFrameBudget is the minimum time between the starts of two iterations.
const DefaultFrameBudget = 50 * time.Millisecond

// ErrSourceExhausted is returned by a Source that has no more snapshots.
var ErrSourceExhausted = errors.New("snapshot source exhausted")

// Source yields one hand observation per call. A nil snapshot with a nil
// error means no hand is visible.
type Source interface {
	NextSnapshot(ctx context.Context) (*detector.Snapshot, error)
}

// Stopper is polled once per iteration.
type Stopper interface {
	ShouldStop() bool
}

// StopFunc adapts a function to Stopper.
type StopFunc func() bool

func (f StopFunc) ShouldStop() bool { return f() }

// Stoppers requests a stop when any of its members does.
type Stoppers []Stopper

func (s Stoppers) ShouldStop() bool {
	for _, st := range s {
		if st != nil && st.ShouldStop() {
			return true
		}
	}
	return false
}

// Observer receives a report for every processed frame. Observers run on the
// loop goroutine and must return quickly.
type Observer interface {
	Observe(FrameReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameReport)

func (f ObserverFunc) Observe(r FrameReport) { f(r) }

// FrameReport describes one processed frame. Snapshot and Raised are shared
// with the loop and must not be modified.
type FrameReport struct {
	Seq        uint64
	Time       time.Time
	Snapshot   *detector.Snapshot
	Raised     []detector.Landmark
	Raw        gesture.Code
	Stable     gesture.Code
	Transition *gesture.Transition
	// Command is set when the transition mapped to a command; Outcome and Err
	// hold its result.
	Command *command.Command
	Outcome command.Outcome
	Err     error
	Elapsed time.Duration
}

// Hand reports whether a hand was detected in the frame.
func (r FrameReport) Hand() bool {
	return r.Snapshot != nil
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	FrameBudget      time.Duration
	FingerThresholdY float64
	Steps            command.Steps
}

// Loop drives source -> counter -> debouncer -> mapper -> executor, one frame
// at a time on a single goroutine. It owns the debounce state.
type Loop struct {
	source    Source
	exec      *command.Executor
	counter   *gesture.Counter
	debouncer gesture.Debouncer
	steps     command.Steps
	budget    time.Duration
	stop      Stopper
	observers []Observer
	logger    *slog.Logger
	seq       uint64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewLoop creates a loop reading from source and executing through exec.
func NewLoop(source Source, exec *command.Executor, cfg LoopConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameBudget < 0 {
		cfg.FrameBudget = 0
	}
	if cfg.Steps == (command.Steps{}) {
		cfg.Steps = command.DefaultSteps()
	}
	return &Loop{
		source:  source,
		exec:    exec,
		counter: gesture.NewCounter(cfg.FingerThresholdY),
		steps:   cfg.Steps,
		budget:  cfg.FrameBudget,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// SetStopper sets the external stop request source.
func (l *Loop) SetStopper(s Stopper) {
	l.stop = s
}

// AddObserver registers an observer for frame reports.
func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// Stable returns the current debounced code.
func (l *Loop) Stable() gesture.Code {
	return l.debouncer.Stable()
}

// Run iterates until ctx is cancelled, the stopper fires, or the source ends.
// A closed camera or an exhausted source ends the loop without error; a hand
// detector that died ends it with one.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control loop started", "frame_budget", l.budget)
	defer func() {
		l.logger.Info("control loop stopped", "frames", l.seq, "stable", int(l.Stable()))
	}()

	for {
		if l.shouldStop(ctx) {
			return nil
		}

		start := l.now()
		if err := l.Step(ctx); err != nil {
			if errors.Is(err, capture.ErrCameraClosed) || errors.Is(err, ErrSourceExhausted) {
				l.logger.Info("capture ended", "reason", err)
				return nil
			}
			return err
		}

		if remaining := l.budget - l.now().Sub(start); remaining > 0 {
			l.sleep(ctx, remaining)
		}
	}
}

func (l *Loop) shouldStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return l.stop != nil && l.stop.ShouldStop()
}

// Step processes one frame. It returns an error only when the source can no
// longer produce frames; read failures are logged and the frame is skipped.
// A closed camera or exhausted source is a clean end for Run, a dead detector
// is not.
func (l *Loop) Step(ctx context.Context) error {
	start := l.now()

	snap, err := l.source.NextSnapshot(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrCameraClosed) || errors.Is(err, ErrSourceExhausted) {
			return err
		}
		if errors.Is(err, detector.ErrHelperExited) {
			return fmt.Errorf("hand detector stopped: %w", err)
		}
		if ctx.Err() == nil {
			l.logger.Warn("frame skipped", "error", err)
		}
		return nil
	}

	l.seq++
	report := FrameReport{Seq: l.seq, Time: start, Snapshot: snap}

	// No hand counts as zero raised digits.
	if snap != nil {
		report.Raised = l.counter.RaisedDigits(*snap)
		report.Raw = l.counter.Count(*snap)
	}

	if t, changed := l.debouncer.Update(report.Raw); changed {
		report.Transition = &t
		l.logger.Debug("gesture changed", "transition", t.String())

		if cmd, ok := command.Map(t, l.steps); ok {
			report.Command = &cmd
			report.Outcome, report.Err = l.exec.Execute(ctx, cmd)
		}
	}
	report.Stable = l.debouncer.Stable()
	report.Elapsed = l.now().Sub(start)

	for _, o := range l.observers {
		o.Observe(report)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
