package detector

import (
	"errors"
	"math"
	"testing"
)

func TestLandmark_String(t *testing.T) {
	tests := []struct {
		landmark Landmark
		want     string
	}{
		{Wrist, "wrist"},
		{ThumbIP, "thumb_ip"},
		{IndexTip, "index_tip"},
		{PinkyTip, "pinky_tip"},
		{Landmark(21), "landmark(21)"},
		{Landmark(-1), "landmark(-1)"},
	}

	for _, tt := range tests {
		if got := tt.landmark.String(); got != tt.want {
			t.Errorf("Landmark(%d).String() = %q, want %q", int(tt.landmark), got, tt.want)
		}
	}
}

func TestLandmark_CanonicalIndices(t *testing.T) {
	// The ids are fixed constants shared with the MediaPipe helper.
	want := map[Landmark]int{
		Wrist:     0,
		ThumbMCP:  2,
		ThumbIP:   3,
		ThumbTip:  4,
		IndexTip:  8,
		MiddleTip: 12,
		RingTip:   16,
		PinkyTip:  20,
	}
	for l, idx := range want {
		if int(l) != idx {
			t.Errorf("%s = %d, want %d", l, int(l), idx)
		}
	}
}

func TestNewSnapshot(t *testing.T) {
	points := make([]Point3D, NumLandmarks)
	for i := range points {
		points[i] = Point3D{X: float64(i) / 100, Y: 1 - float64(i)/100}
	}

	t.Run("copies points in order", func(t *testing.T) {
		s, err := NewSnapshot(points, "Right", 0.9)
		if err != nil {
			t.Fatalf("NewSnapshot() error = %v", err)
		}
		if s.At(IndexTip) != points[8] {
			t.Errorf("At(IndexTip) = %+v, want %+v", s.At(IndexTip), points[8])
		}
		if s.Handedness != "Right" || s.Score != 0.9 {
			t.Errorf("metadata not preserved: %q %f", s.Handedness, s.Score)
		}

		// Mutating the source slice must not affect the snapshot
		points[0].X = 42
		if s.At(Wrist).X == 42 {
			t.Error("snapshot aliases caller slice")
		}
		points[0].X = 0
	})

	t.Run("rejects wrong point count", func(t *testing.T) {
		_, err := NewSnapshot(points[:20], "Right", 0.9)
		if !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("expected ErrInvalidSnapshot, got %v", err)
		}
	})

	t.Run("rejects non-finite coordinates", func(t *testing.T) {
		bad := make([]Point3D, NumLandmarks)
		copy(bad, points)
		bad[ThumbTip].Y = math.NaN()

		_, err := NewSnapshot(bad, "Left", 0.8)
		if !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("expected ErrInvalidSnapshot, got %v", err)
		}

		bad[ThumbTip].Y = math.Inf(1)
		if _, err := NewSnapshot(bad, "Left", 0.8); err == nil {
			t.Error("expected error for infinite coordinate")
		}
	})

	t.Run("accepts coordinates outside the unit square", func(t *testing.T) {
		noisy := make([]Point3D, NumLandmarks)
		copy(noisy, points)
		noisy[PinkyTip] = Point3D{X: 1.07, Y: -0.02}

		if _, err := NewSnapshot(noisy, "Right", 0.7); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hands, err := parseResponse([]byte(`{"hands":[]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected 0 hands, got %d", len(hands))
		}
	})

	t.Run("one hand", func(t *testing.T) {
		line := `{"hands":[{"points":[`
		for i := 0; i < NumLandmarks; i++ {
			if i > 0 {
				line += ","
			}
			line += `{"x":0.5,"y":0.5,"z":0}`
		}
		line += `],"handedness":"Left","score":0.97}]}`

		hands, err := parseResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", hands[0].Handedness)
		}
	})

	t.Run("short hand is rejected", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"hands":[{"points":[{"x":0.5,"y":0.5,"z":0}]}]}`))
		if !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("expected ErrInvalidSnapshot, got %v", err)
		}
	})

	t.Run("helper error is surfaced", func(t *testing.T) {
		_, err := parseResponse([]byte(`{"error":"model not loaded"}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		if _, err := parseResponse([]byte("not json")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]Snapshot{ThumbsUpLandmarks(), FistLandmarks()})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("plays script then falls back", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]Snapshot{FistLandmarks()})
		mock.SetScript([][]Snapshot{nil, {FingersLandmarks(2)}})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 0 {
			t.Errorf("call 1: expected no hands, got %d", len(first))
		}
		if len(second) != 1 || second[0] != FingersLandmarks(2) {
			t.Errorf("call 2: expected scripted hand")
		}
		if len(third) != 1 || third[0] != FistLandmarks() {
			t.Errorf("call 3: expected fallback hand")
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands on error, got %v", hands)
		}
	})

	t.Run("presets are valid", func(t *testing.T) {
		presets := []Snapshot{FistLandmarks(), ThumbsUpLandmarks()}
		for n := 0; n <= 5; n++ {
			presets = append(presets, FingersLandmarks(n))
		}
		for i, p := range presets {
			if err := p.Validate(); err != nil {
				t.Errorf("preset %d invalid: %v", i, err)
			}
		}
	})
}
