package gesture

import "github.com/ayusman/mudra/internal/detector"

// DefaultFingerThresholdY is how far, as a fraction of frame height, a fingertip must sit
// above the wrist to count as raised.
const DefaultFingerThresholdY = 0.1

// fingerTips are the non-thumb digits, in the order they are reported by RaisedDigits.
var fingerTips = [...]detector.Landmark{
	detector.IndexTip,
	detector.MiddleTip,
	detector.RingTip,
	detector.PinkyTip,
}

// Counter counts raised digits on a single hand.
//
// The four fingers use a vertical rule: a finger is raised when its tip is above the
// wrist by more than ThresholdY. The thumb moves sideways, so it is raised when its tip
// is left of its IP joint and above its MCP joint. The sideways comparison is not
// mirrored by handedness: with a mirrored camera view it matches a right hand, and a
// left hand's extended thumb is not counted.
type Counter struct {
	ThresholdY float64
}

// NewCounter returns a Counter with the given vertical threshold.
// A non-positive threshold selects DefaultFingerThresholdY.
func NewCounter(thresholdY float64) *Counter {
	if thresholdY <= 0 {
		thresholdY = DefaultFingerThresholdY
	}
	return &Counter{ThresholdY: thresholdY}
}

// Count returns the gesture code for one hand.
func (c *Counter) Count(s detector.Snapshot) Code {
	return Code(len(c.RaisedDigits(s))).Clamp()
}

// RaisedDigits returns the tip landmark of every raised digit, fingers first and the
// thumb last. Overlays use it to mark fingertips; it has no effect on Count beyond
// supplying the tally.
func (c *Counter) RaisedDigits(s detector.Snapshot) []detector.Landmark {
	raised := make([]detector.Landmark, 0, len(fingerTips)+1)

	wristY := s.At(detector.Wrist).Y
	for _, tip := range fingerTips {
		if s.At(tip).Y < wristY-c.ThresholdY {
			raised = append(raised, tip)
		}
	}

	if thumbRaised(s) {
		raised = append(raised, detector.ThumbTip)
	}

	return raised
}

func thumbRaised(s detector.Snapshot) bool {
	tip := s.At(detector.ThumbTip)
	return tip.X < s.At(detector.ThumbIP).X && tip.Y < s.At(detector.ThumbMCP).Y
}
