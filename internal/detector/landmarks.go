// Package detector provides hand detection interfaces and the landmark snapshot type
// consumed by gesture classification.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Landmark identifies one of the 21 hand landmarks.
// Indices follow the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Landmark int

const (
	Wrist Landmark = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
)

// NumLandmarks is the number of points in every Snapshot.
const NumLandmarks = 21

var landmarkNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// String returns the snake_case name of the landmark.
func (l Landmark) String() string {
	if l < 0 || int(l) >= NumLandmarks {
		return fmt.Sprintf("landmark(%d)", int(l))
	}
	return landmarkNames[l]
}

// ErrInvalidSnapshot is returned when detector output cannot form a Snapshot.
var ErrInvalidSnapshot = errors.New("invalid landmark snapshot")

// Point3D is a landmark position in normalized image coordinates.
// X and Y are fractions of the frame width and height; smaller Y is higher in the frame.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Snapshot is the set of landmarks for one detected hand in one frame.
// It is a value type: copies never alias the source frame's data.
type Snapshot struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// At returns the position of landmark l.
func (s Snapshot) At(l Landmark) Point3D {
	return s.Points[l]
}

// Validate reports whether every coordinate is a finite number.
// Values outside [0,1] are accepted since detectors overshoot near frame edges.
func (s Snapshot) Validate() error {
	for i, p := range s.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: %s has non-finite coordinate", ErrInvalidSnapshot, Landmark(i))
		}
	}
	return nil
}

// NewSnapshot builds a Snapshot from an ordered point list.
// It fails unless exactly NumLandmarks finite points are given.
func NewSnapshot(points []Point3D, handedness string, score float64) (Snapshot, error) {
	if len(points) != NumLandmarks {
		return Snapshot{}, fmt.Errorf("%w: got %d points, want %d", ErrInvalidSnapshot, len(points), NumLandmarks)
	}

	s := Snapshot{
		Handedness: handedness,
		Score:      score,
	}
	copy(s.Points[:], points)

	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
