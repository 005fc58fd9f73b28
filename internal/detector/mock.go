package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either as a fixed answer
// or as a script of per-call answers.
type MockDetector struct {
	hands  []Snapshot
	script [][]Snapshot
	calls  int
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []Snapshot) {
	m.hands = hands
}

// SetScript makes the n-th call to Detect return script[n].
// Once the script is exhausted Detect falls back to the hands set by SetHands.
func (m *MockDetector) SetScript(script [][]Snapshot) {
	m.script = script
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Snapshot, error) {
	n := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if n < len(m.script) {
		return m.script[n], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FistLandmarks returns a preset Snapshot of a closed fist: every fingertip sits
// level with the knuckles and the thumb is folded across the palm.
func FistLandmarks() Snapshot {
	s := Snapshot{
		Handedness: "Right",
		Score:      0.95,
	}

	s.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}

	// Thumb folded: tip to the right of the IP joint
	s.Points[ThumbCMC] = Point3D{X: 0.45, Y: 0.76}
	s.Points[ThumbMCP] = Point3D{X: 0.42, Y: 0.72}
	s.Points[ThumbIP] = Point3D{X: 0.44, Y: 0.68}
	s.Points[ThumbTip] = Point3D{X: 0.48, Y: 0.67}

	curl := func(mcp, pip, dip, tip Landmark, x float64) {
		s.Points[mcp] = Point3D{X: x, Y: 0.70, Z: -0.02}
		s.Points[pip] = Point3D{X: x, Y: 0.66, Z: -0.05}
		s.Points[dip] = Point3D{X: x, Y: 0.70, Z: -0.04}
		s.Points[tip] = Point3D{X: x, Y: 0.74, Z: -0.02}
	}
	curl(IndexMCP, IndexPIP, IndexDIP, IndexTip, 0.47)
	curl(MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip, 0.51)
	curl(RingMCP, RingPIP, RingDIP, RingTip, 0.55)
	curl(PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip, 0.59)

	return s
}

// FingersLandmarks returns a preset Snapshot showing n raised digits (0-5), raised in the
// order index, middle, ring, pinky, thumb. Values outside the range are clamped.
func FingersLandmarks(n int) Snapshot {
	s := FistLandmarks()

	extend := func(mcp, pip, dip, tip Landmark) {
		x := s.Points[mcp].X
		s.Points[pip] = Point3D{X: x, Y: 0.55}
		s.Points[dip] = Point3D{X: x, Y: 0.45}
		s.Points[tip] = Point3D{X: x, Y: 0.35}
	}

	fingers := [][4]Landmark{
		{IndexMCP, IndexPIP, IndexDIP, IndexTip},
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
	}
	for i := 0; i < n && i < len(fingers); i++ {
		f := fingers[i]
		extend(f[0], f[1], f[2], f[3])
	}

	if n >= 5 {
		s.Points[ThumbIP] = Point3D{X: 0.38, Y: 0.64}
		s.Points[ThumbTip] = Point3D{X: 0.33, Y: 0.58}
	}

	return s
}

// ThumbsUpLandmarks returns a preset Snapshot with only the thumb raised and
// pointing away from the palm.
func ThumbsUpLandmarks() Snapshot {
	s := FistLandmarks()
	s.Points[ThumbIP] = Point3D{X: 0.40, Y: 0.60}
	s.Points[ThumbTip] = Point3D{X: 0.37, Y: 0.50}
	return s
}
