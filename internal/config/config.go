// Package config loads and validates the mudra YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDataDir holds the config file, history database and lock file.
const DefaultDataDir = "~/.mudra"

// goos is the platform Validate checks against.
var goos = runtime.GOOS

// Config is the top-level YAML configuration.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Gesture  GestureConfig  `yaml:"gesture"`
	Controls ControlsConfig `yaml:"controls"`
	Loop     LoopConfig     `yaml:"loop"`
	Backend  BackendConfig  `yaml:"backend"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	History  HistoryConfig  `yaml:"history"`
	Tray     TrayConfig     `yaml:"tray"`
	Preview  PreviewConfig  `yaml:"preview"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type CameraConfig struct {
	// Source is "device" for a real camera or "blank" for black frames (dry runs).
	Source string `yaml:"source"`
	Device int    `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Flip   bool   `yaml:"flip"`
}

type DetectorConfig struct {
	// Kind is "mediapipe" or "mock".
	Kind                   string  `yaml:"kind"`
	Python                 string  `yaml:"python,omitempty"`
	Script                 string  `yaml:"script,omitempty"`
	MaxHands               int     `yaml:"max_hands"`
	MinDetectionConfidence float64 `yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `yaml:"min_tracking_confidence"`
	// StartTimeoutMS bounds how long the helper may take to report ready.
	StartTimeoutMS int `yaml:"start_timeout_ms"`
	// MockPoses is the finger count sequence the mock detector shows, one entry
	// per MockHoldFrames frames. A negative entry means no hand.
	MockPoses      []int `yaml:"mock_poses,omitempty"`
	MockHoldFrames int   `yaml:"mock_hold_frames,omitempty"`
}

type GestureConfig struct {
	FingerThresholdY float64 `yaml:"finger_threshold_y"`
}

type ControlsConfig struct {
	VolumeStep      int     `yaml:"volume_step"`
	SeekStepSeconds float64 `yaml:"seek_step_seconds"`
}

type LoopConfig struct {
	FrameBudgetMS int `yaml:"frame_budget_ms"`
}

type BackendConfig struct {
	// Kind is "mpv", "vlc" or "memory".
	Kind   string       `yaml:"kind"`
	MPV    MPVConfig    `yaml:"mpv"`
	VLC    VLCConfig    `yaml:"vlc"`
	Memory MemoryConfig `yaml:"memory"`
}

type MPVConfig struct {
	Socket string `yaml:"socket"`
	Binary string `yaml:"binary"`
	// Media, when set, makes mudra launch mpv itself with this file.
	Media     string `yaml:"media,omitempty"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type VLCConfig struct {
	URL       string `yaml:"url"`
	Password  string `yaml:"password"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type MemoryConfig struct {
	Volume   int     `yaml:"volume"`
	Position float64 `yaml:"position"`
}

type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <data_dir>/history.db.
	Path         string `yaml:"path,omitempty"`
	KeepSessions int    `yaml:"keep_sessions"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type PreviewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "console", "json" or "auto" (console on a terminal, json otherwise).
	Format string `yaml:"format"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: DefaultDataDir,
		Camera: CameraConfig{
			Source: "device",
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    20,
			Flip:   true,
		},
		Detector: DetectorConfig{
			Kind:                   "mediapipe",
			MaxHands:               1,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
			StartTimeoutMS:         30000,
			MockHoldFrames:         10,
		},
		Gesture: GestureConfig{
			FingerThresholdY: 0.1,
		},
		Controls: ControlsConfig{
			VolumeStep:      10,
			SeekStepSeconds: 10,
		},
		Loop: LoopConfig{
			FrameBudgetMS: 50,
		},
		Backend: BackendConfig{
			Kind: "mpv",
			MPV: MPVConfig{
				Socket:    "/tmp/mudra-mpv.sock",
				Binary:    "mpv",
				TimeoutMS: 500,
			},
			VLC: VLCConfig{
				URL:       "http://127.0.0.1:8080",
				TimeoutMS: 1000,
			},
			Memory: MemoryConfig{
				Volume: 50,
			},
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8765",
		},
		History: HistoryConfig{
			Enabled:      true,
			KeepSessions: 50,
		},
		Tray: TrayConfig{
			Enabled: false,
		},
		Preview: PreviewConfig{
			Enabled: true,
			Title:   "Media Player Control",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// DefaultPath returns the config file location inside the default data dir.
func DefaultPath() string {
	return filepath.Join(ExpandPath(DefaultDataDir), "config.yaml")
}

// LoadFile reads a YAML config file on top of the defaults.
// Unknown fields and trailing documents are rejected.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Load reads path when it exists and returns the defaults otherwise.
func Load(path string) (Config, error) {
	if _, err := os.Stat(ExpandPath(path)); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// Parse decodes YAML config bytes on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and flag overrides are applied.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}

	switch c.Camera.Source {
	case "device", "blank":
	default:
		return fmt.Errorf("camera.source must be %q or %q", "device", "blank")
	}
	if c.Camera.Device < 0 {
		return errors.New("camera.device must be >= 0")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be > 0")
	}
	if c.Camera.FPS <= 0 {
		return errors.New("camera.fps must be > 0")
	}

	switch c.Detector.Kind {
	case "mediapipe", "mock":
	default:
		return fmt.Errorf("detector.kind must be %q or %q", "mediapipe", "mock")
	}
	if c.Detector.MaxHands < 1 {
		return errors.New("detector.max_hands must be >= 1")
	}
	if !inUnitRange(c.Detector.MinDetectionConfidence) || !inUnitRange(c.Detector.MinTrackingConfidence) {
		return errors.New("detector confidences must be between 0 and 1")
	}
	if slices.ContainsFunc(c.Detector.MockPoses, func(n int) bool { return n > 5 }) {
		return errors.New("detector.mock_poses entries must be <= 5")
	}
	if c.Detector.StartTimeoutMS < 0 {
		return errors.New("detector.start_timeout_ms must be >= 0")
	}
	if c.Detector.MockHoldFrames < 0 {
		return errors.New("detector.mock_hold_frames must be >= 0")
	}

	if c.Gesture.FingerThresholdY <= 0 || c.Gesture.FingerThresholdY >= 1 {
		return errors.New("gesture.finger_threshold_y must be between 0 and 1 (exclusive)")
	}

	if c.Controls.VolumeStep <= 0 || c.Controls.VolumeStep > 100 {
		return errors.New("controls.volume_step must be between 1 and 100")
	}
	if c.Controls.SeekStepSeconds <= 0 {
		return errors.New("controls.seek_step_seconds must be > 0")
	}

	if c.Loop.FrameBudgetMS < 0 {
		return errors.New("loop.frame_budget_ms must be >= 0")
	}

	switch c.Backend.Kind {
	case "mpv":
		if c.Backend.MPV.Socket == "" {
			return errors.New("backend.mpv.socket must not be empty")
		}
		if c.Backend.MPV.TimeoutMS <= 0 {
			return errors.New("backend.mpv.timeout_ms must be > 0")
		}
	case "vlc":
		if c.Backend.VLC.URL == "" {
			return errors.New("backend.vlc.url must not be empty")
		}
		if c.Backend.VLC.TimeoutMS <= 0 {
			return errors.New("backend.vlc.timeout_ms must be > 0")
		}
	case "memory":
		if c.Backend.Memory.Volume < 0 || c.Backend.Memory.Volume > 100 {
			return errors.New("backend.memory.volume must be between 0 and 100")
		}
		if c.Backend.Memory.Position < 0 {
			return errors.New("backend.memory.position must be >= 0")
		}
	default:
		return fmt.Errorf("backend.kind must be one of %q, %q, %q", "mpv", "vlc", "memory")
	}

	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		return errors.New("monitor.enabled is true but monitor.addr is empty")
	}

	// The tray takes the main thread and Cocoa only draws HighGUI windows there.
	if goos == "darwin" && c.Preview.Enabled && c.Tray.Enabled {
		return errors.New("preview.enabled and tray.enabled cannot be combined on macOS")
	}

	if c.History.KeepSessions < 0 {
		return errors.New("history.keep_sessions must be >= 0")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be one of %q, %q, %q", "console", "json", "auto")
	}

	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// FrameBudget returns the loop frame budget as a duration.
func (c *Config) FrameBudget() time.Duration {
	return time.Duration(c.Loop.FrameBudgetMS) * time.Millisecond
}

// HistoryPath returns the history database path with "~" expanded.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return ExpandPath(c.History.Path)
	}
	return filepath.Join(ExpandPath(c.DataDir), "history.db")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(ExpandPath(c.DataDir), "mudra.lock")
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
