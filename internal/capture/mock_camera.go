package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing and dry runs.
// Without loop it reports ErrCameraClosed once the frames run out.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	opened  bool
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// NewBlankCamera returns a looping MockCamera that yields black frames of the
// default size. Close releases the frame.
func NewBlankCamera() *MockCamera {
	frame := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	return &MockCamera{frames: []*gocv.Mat{&frame}, loop: true}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.opened = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Release closes the frames the camera holds.
func (c *MockCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.frames {
		f.Close()
	}
	c.frames = nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		if c.opened {
			return nil, ErrCameraClosed
		}
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available: %w", ErrFrameRead)
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrCameraClosed
		}
		c.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) FPS() int { return DefaultFPS }
