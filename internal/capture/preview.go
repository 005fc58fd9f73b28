package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Preview window defaults.
const (
	DefaultWindowTitle = "Media Player Control"
	keyEscape          = 27
)

var (
	landmarkColor = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	raisedColor   = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	textColor     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Preview shows camera frames with the detected hand drawn on top. Pressing
// ESC in the window raises its stop flag.
//
// Window calls must come from the goroutine running the control loop. The
// window is created by the first Show so that it lives on that thread.
type Preview struct {
	title  string
	window *gocv.Window
	stop   atomic.Bool
}

// NewPreview prepares a preview window with the given title.
func NewPreview(title string) *Preview {
	if title == "" {
		title = DefaultWindowTitle
	}
	return &Preview{title: title}
}

// Show draws the overlay on a copy of frame, displays it and polls the keyboard.
// frame is not modified.
func (p *Preview) Show(frame *gocv.Mat, snap *detector.Snapshot, raised []detector.Landmark, fingers int) {
	if frame == nil || frame.Empty() {
		return
	}

	img := frame.Clone()
	defer img.Close()

	DrawOverlay(&img, snap, raised, fingers)
	if p.window == nil {
		p.window = gocv.NewWindow(p.title)
	}
	p.window.IMShow(img)

	if p.window.WaitKey(1) == keyEscape {
		p.stop.Store(true)
	}
}

// ShouldStop reports whether ESC was pressed.
func (p *Preview) ShouldStop() bool {
	return p.stop.Load()
}

// Close destroys the window if one was shown.
func (p *Preview) Close() error {
	if p.window == nil {
		return nil
	}
	err := p.window.Close()
	p.window = nil
	return err
}

// DrawOverlay draws landmarks, filled circles on raised fingertips and the
// finger count onto img.
func DrawOverlay(img *gocv.Mat, snap *detector.Snapshot, raised []detector.Landmark, fingers int) {
	if snap != nil {
		for i := range detector.NumLandmarks {
			gocv.Circle(img, toPixel(img, snap.At(detector.Landmark(i))), 3, landmarkColor, -1)
		}
		for _, l := range raised {
			gocv.Circle(img, toPixel(img, snap.At(l)), 10, raisedColor, -1)
		}
	}

	gocv.PutText(img, fmt.Sprintf("Fingers: %d", fingers), image.Pt(10, 50),
		gocv.FontHersheySimplex, 1, textColor, 2)
}

// toPixel converts a normalized landmark to image coordinates.
func toPixel(img *gocv.Mat, p detector.Point3D) image.Point {
	return image.Pt(int(p.X*float64(img.Cols())), int(p.Y*float64(img.Rows())))
}
