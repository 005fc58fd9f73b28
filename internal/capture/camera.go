// Package capture provides camera capture and the preview window using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 20
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that was never opened.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrCameraClosed is returned once the camera has been closed or the device went away.
	ErrCameraClosed = errors.New("camera closed")
	// ErrFrameRead is returned when a single frame could not be grabbed. The next read may succeed.
	ErrFrameRead = errors.New("failed to read frame from camera")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	// FPS is the capture rate requested from the device.
	FPS() int
}

// Config describes the capture device.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
	// Flip mirrors frames horizontally so the preview behaves like a mirror.
	// The thumb rule assumes mirrored frames.
	Flip bool
}

// DefaultConfig returns device 0 at 640x480, mirrored.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
		Flip:     true,
	}
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	opened  bool
}

// NewCamera creates a new Camera for cfg. Zero sizes and FPS fall back to the defaults.
func NewCamera(cfg Config) Camera {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	return &cameraImpl{cfg: cfg}
}

// Open opens the camera for capturing frames.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.DeviceID)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return ErrCameraNotOpen
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))

	c.capture = capture
	c.running = true
	c.opened = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera, mirrored when configured.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		if c.opened {
			return nil, ErrCameraClosed
		}
		return nil, ErrCameraNotOpen
	}
	if !c.capture.IsOpened() {
		return nil, ErrCameraClosed
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrFrameRead
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	if c.cfg.Flip {
		gocv.Flip(mat, &mat, 1)
	}

	return &mat, nil
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cfg.FPS
}
