// Package app wires the camera, detector, control loop and media backend of a
// mudra run, and owns their lifetimes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/monitor"
	"github.com/ayusman/mudra/internal/player"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

// ErrAlreadyRunning is returned by Open when another instance holds the data dir lock.
var ErrAlreadyRunning = errors.New("another mudra instance is running")

const shutdownTimeout = 2 * time.Second

// Deps overrides collaborators that Open would otherwise build from the config.
// Anything passed here is owned, and closed, by the App.
type Deps struct {
	Backend  player.Backend
	Detector detector.Detector
	Camera   capture.Camera
	// Source replaces the camera and detector entirely.
	Source Source
}

// App holds every resource acquired for a run.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	loop    *Loop
	store   *store.Store
	session *store.Session
	monitor *monitor.Server
	monAddr net.Addr
	tray    *tray.Tray

	// closers run in reverse order on Close.
	closers []namedCloser
	closed  bool
}

type namedCloser struct {
	name string
	fn   func() error
}

// Open acquires all resources described by cfg. Any failure releases what was
// already acquired and is returned; the loop never starts half wired.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.open(ctx, deps); err != nil {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("cleanup after failed start", "error", cerr)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context, deps Deps) error {
	if err := a.acquireLock(); err != nil {
		return err
	}

	if a.cfg.History.Enabled {
		if err := a.openHistory(); err != nil {
			return err
		}
	}

	backend := deps.Backend
	if backend == nil {
		var err error
		if backend, err = a.openBackend(ctx); err != nil {
			return fmt.Errorf("open %s backend: %w", a.cfg.Backend.Kind, err)
		}
	}
	a.addCloser("backend", backend.Close)

	source := deps.Source
	var camSource *CameraSource
	if source == nil {
		var err error
		if camSource, err = a.openCapture(deps); err != nil {
			return err
		}
		source = camSource
	}

	exec := command.NewExecutor(backend, logging.Component(a.logger, "executor"))
	a.loop = NewLoop(source, exec, LoopConfig{
		FrameBudget:      a.cfg.FrameBudget(),
		FingerThresholdY: a.cfg.Gesture.FingerThresholdY,
		Steps: command.Steps{
			Volume:      a.cfg.Controls.VolumeStep,
			SeekSeconds: a.cfg.Controls.SeekStepSeconds,
		},
	}, logging.Component(a.logger, "loop"))

	var stoppers Stoppers

	if a.store != nil {
		a.loop.AddObserver(&historyRecorder{
			events:    a.store.Events(),
			sessionID: a.session.ID,
			logger:    logging.Component(a.logger, "history"),
		})
	}

	if a.cfg.Preview.Enabled && camSource != nil {
		preview := capture.NewPreview(a.cfg.Preview.Title)
		a.addCloser("preview", preview.Close)
		a.loop.AddObserver(&previewRenderer{preview: preview, source: camSource})
		stoppers = append(stoppers, preview)
	}

	if a.cfg.Monitor.Enabled {
		a.monitor = monitor.New(monitor.Config{
			Store:   a.store,
			Backend: a.cfg.Backend.Kind,
			Logger:  logging.Component(a.logger, "monitor"),
		})
		addr, err := a.monitor.Start(a.cfg.Monitor.Addr)
		if err != nil {
			a.monitor = nil
			return fmt.Errorf("start monitor: %w", err)
		}
		a.monAddr = addr
		srv := a.monitor
		a.addCloser("monitor", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		})
		a.loop.AddObserver(&monitorPublisher{server: a.monitor})
	}

	if a.cfg.Tray.Enabled {
		a.tray = tray.New()
		a.loop.AddObserver(&trayUpdater{tray: a.tray})
		stoppers = append(stoppers, a.tray)
	}

	a.loop.SetStopper(stoppers)
	return nil
}

func (a *App) acquireLock() error {
	path := a.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%w (lock held: %s)", ErrAlreadyRunning, path)
	}
	a.addCloser("lock", lock.Unlock)
	return nil
}

func (a *App) openHistory() error {
	st, err := store.New(a.cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	a.store = st
	a.addCloser("history", st.Close)

	a.session = &store.Session{
		Backend: a.cfg.Backend.Kind,
		Device:  a.deviceLabel(),
	}
	if err := st.Sessions().Create(a.session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	id := a.session.ID
	a.addCloser("session", func() error { return st.Sessions().End(id) })

	// The new session is the most recent one, so pruning keeps it.
	if n, err := st.Sessions().Prune(a.cfg.History.KeepSessions); err != nil {
		a.logger.Warn("failed to prune history", "error", err)
	} else if n > 0 {
		a.logger.Info("pruned old sessions", "removed", n)
	}
	return nil
}

func (a *App) deviceLabel() string {
	if a.cfg.Camera.Source == "blank" {
		return "blank"
	}
	return strconv.Itoa(a.cfg.Camera.Device)
}

func (a *App) openBackend(ctx context.Context) (player.Backend, error) {
	logger := logging.Component(a.logger, "player")
	b := a.cfg.Backend

	switch b.Kind {
	case "memory":
		return player.NewMemory(b.Memory.Volume, b.Memory.Position), nil
	case "mpv":
		mcfg := player.MPVConfig{
			SocketPath: config.ExpandPath(b.MPV.Socket),
			Binary:     b.MPV.Binary,
			MediaPath:  config.ExpandPath(b.MPV.Media),
			Timeout:    time.Duration(b.MPV.TimeoutMS) * time.Millisecond,
		}
		if mcfg.MediaPath != "" {
			return player.LaunchMPV(ctx, mcfg, logger)
		}
		return player.DialMPV(ctx, mcfg, logger)
	case "vlc":
		return player.DialVLC(ctx, player.VLCConfig{
			BaseURL:  b.VLC.URL,
			Password: b.VLC.Password,
			Timeout:  time.Duration(b.VLC.TimeoutMS) * time.Millisecond,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", b.Kind)
	}
}

func (a *App) openCapture(deps Deps) (*CameraSource, error) {
	det := deps.Detector
	if det == nil {
		var err error
		if det, err = a.openDetector(); err != nil {
			return nil, fmt.Errorf("open detector: %w", err)
		}
	}
	a.addCloser("detector", det.Close)

	cam := deps.Camera
	if cam == nil {
		cam = a.newCamera()
	}
	if err := cam.Open(); err != nil {
		return nil, fmt.Errorf("open camera: %w", err)
	}
	a.addCloser("camera", cam.Close)
	a.logger.Info("camera opened", "device", a.deviceLabel(), "fps", cam.FPS())

	src := NewCameraSource(cam, det)
	a.addCloser("frame", src.Close)
	return src, nil
}

func (a *App) newCamera() capture.Camera {
	c := a.cfg.Camera
	if c.Source == "blank" {
		blank := capture.NewBlankCamera()
		a.addCloser("blank frames", func() error { blank.Release(); return nil })
		return blank
	}
	cc := capture.DefaultConfig()
	cc.DeviceID = c.Device
	cc.Flip = c.Flip
	if c.Width > 0 && c.Height > 0 {
		cc.Width, cc.Height = c.Width, c.Height
	}
	if c.FPS > 0 {
		cc.FPS = c.FPS
	}
	return capture.NewCamera(cc)
}

func (a *App) openDetector() (detector.Detector, error) {
	d := a.cfg.Detector
	if d.Kind == "mock" {
		return newPoseDetector(d.MockPoses, d.MockHoldFrames), nil
	}

	dc := detector.DefaultConfig()
	dc.PythonPath = config.ExpandPath(d.Python)
	dc.ScriptPath = config.ExpandPath(d.Script)
	dc.MaxHands = d.MaxHands
	dc.MinConfidence = d.MinDetectionConfidence
	dc.MinTrackingConf = d.MinTrackingConfidence
	if d.StartTimeoutMS > 0 {
		dc.StartTimeout = time.Duration(d.StartTimeoutMS) * time.Millisecond
	}

	mp, err := detector.NewMediaPipeDetector(dc)
	if err != nil {
		return nil, err
	}
	if err := mp.Start(); err != nil {
		_ = mp.Close()
		return nil, err
	}
	return mp, nil
}

// newPoseDetector returns a mock detector that shows each pose for hold frames.
func newPoseDetector(poses []int, hold int) *detector.MockDetector {
	if hold <= 0 {
		hold = 1
	}
	script := make([][]detector.Snapshot, 0, len(poses)*hold)
	for _, n := range poses {
		var hands []detector.Snapshot
		if snap := PoseSnapshot(n); snap != nil {
			hands = []detector.Snapshot{*snap}
		}
		for range hold {
			script = append(script, hands)
		}
	}
	d := detector.NewMockDetector()
	d.SetScript(script)
	return d
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, fn: fn})
}

// Run drives the control loop until ctx is cancelled, a stop is requested or
// capture ends.
func (a *App) Run(ctx context.Context) error {
	if a.session != nil {
		a.logger.Info("session started", "session", a.session.ID, "backend", a.cfg.Backend.Kind)
	}
	return a.loop.Run(ctx)
}

// Close releases every acquired resource in reverse order. It is safe to call
// more than once.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("error releasing resource", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// Loop returns the control loop.
func (a *App) Loop() *Loop {
	return a.loop
}

// Tray returns the tray, or nil when disabled. The caller runs it on the main goroutine.
func (a *App) Tray() *tray.Tray {
	return a.tray
}

// Monitor returns the monitor server, or nil when disabled.
func (a *App) Monitor() *monitor.Server {
	return a.monitor
}

// MonitorAddr returns the address the monitor listens on, or nil when disabled.
func (a *App) MonitorAddr() net.Addr {
	return a.monAddr
}

// Session returns the history session, or nil when history is disabled.
func (a *App) Session() *store.Session {
	return a.session
}

// Store returns the history store, or nil when history is disabled.
func (a *App) Store() *store.Store {
	return a.store
}
