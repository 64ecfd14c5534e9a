package app

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/evzhukov/lanekeeper/internal/control"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

var (
	segmentColor = color.RGBA{0, 255, 0, 0}
	centerColor  = color.RGBA{255, 0, 0, 0}
	textColor    = color.RGBA{0, 255, 255, 0}
)

// annotate draws the detected segments, the frame center, and the steering
// decision onto the frame and returns its JPEG encoding. Returns nil when
// encoding fails; the debug stream just skips the frame.
func (a *App) annotate(frame *gocv.Mat, segments []vision.Segment, cmd control.SteeringCommand) []byte {
	for _, seg := range segments {
		p1 := image.Pt(int(seg.X1), int(seg.Y1))
		p2 := image.Pt(int(seg.X2), int(seg.Y2))
		gocv.Line(frame, p1, p2, segmentColor, 2)
	}

	centerX := frame.Cols() / 2
	gocv.Line(frame, image.Pt(centerX, frame.Rows()-40), image.Pt(centerX, frame.Rows()), centerColor, 1)

	label := fmt.Sprintf("%s %.2f", cmd.State, cmd.Angle)
	gocv.PutText(frame, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, textColor, 2)

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	return jpeg
}
