package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// CameraSource reads frames from a camera and runs them through a detector.
// It keeps the latest frame so the preview can draw on it.
type CameraSource struct {
	camera   capture.Camera
	detector detector.Detector
	frame    *gocv.Mat
}

// NewCameraSource creates a source over an opened camera.
func NewCameraSource(camera capture.Camera, d detector.Detector) *CameraSource {
	return &CameraSource{camera: camera, detector: d}
}

// NextSnapshot reads one frame and returns the first detected hand, or nil.
func (s *CameraSource) NextSnapshot(ctx context.Context) (*detector.Snapshot, error) {
	s.releaseFrame()

	frame, err := s.camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrCameraNotOpen) {
			return nil, fmt.Errorf("%w: %w", capture.ErrCameraClosed, err)
		}
		return nil, err
	}
	s.frame = frame

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	if len(hands) == 0 {
		return nil, nil
	}
	hand := hands[0]
	return &hand, nil
}

// Frame returns the frame of the last NextSnapshot call. It is valid until
// the next call or Close.
func (s *CameraSource) Frame() *gocv.Mat {
	return s.frame
}

// Close releases the retained frame. The camera and detector are closed by their owner.
func (s *CameraSource) Close() error {
	s.releaseFrame()
	return nil
}

func (s *CameraSource) releaseFrame() {
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
}

// ScriptSource replays a fixed list of snapshots and then reports
// ErrSourceExhausted. Nil entries are frames without a hand.
type ScriptSource struct {
	snaps []*detector.Snapshot
	next  int
}

// NewScriptSource creates a source that replays snaps in order.
func NewScriptSource(snaps []*detector.Snapshot) *ScriptSource {
	return &ScriptSource{snaps: snaps}
}

// NewCodeSource builds a ScriptSource showing the given finger counts, one per
// frame. A negative count is a frame without a hand.
func NewCodeSource(codes ...int) *ScriptSource {
	snaps := make([]*detector.Snapshot, len(codes))
	for i, c := range codes {
		snaps[i] = PoseSnapshot(c)
	}
	return NewScriptSource(snaps)
}

// PoseSnapshot returns a hand with n raised digits, or nil when n is negative.
func PoseSnapshot(n int) *detector.Snapshot {
	if n < 0 {
		return nil
	}
	s := detector.FingersLandmarks(n)
	return &s
}

func (s *ScriptSource) NextSnapshot(ctx context.Context) (*detector.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.snaps) {
		return nil, ErrSourceExhausted
	}
	snap := s.snaps[s.next]
	s.next++
	return snap, nil
}
