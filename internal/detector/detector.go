package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns one validated Snapshot per detected hand.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]Snapshot, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// PythonPath is the interpreter used to run the MediaPipe helper.
	// Empty means a virtualenv python if one is found, else "python3".
	PythonPath string

	// ScriptPath is the MediaPipe helper script. Empty means search the usual locations.
	ScriptPath string

	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// StartTimeout bounds the wait for the helper's ready line (default: 30s).
	StartTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		StartTimeout:    defaultStartTimeout,
	}
}
