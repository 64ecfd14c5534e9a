// Package testutil builds synthetic road frames for tests: a dark asphalt
// background with white lane paint drawn where each scenario needs it.
package testutil

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	asphalt   = gocv.NewScalar(30, 30, 30, 0)
	lanePaint = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// lineThickness is wide enough that blur and morphology leave the paint
// intact.
const lineThickness = 6

// RoadFrame returns an empty dark road frame. The caller closes it.
func RoadFrame(width, height int) *gocv.Mat {
	m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	m.SetTo(asphalt)
	return &m
}

// LaneFrame returns a road frame with a vertical white lane line at each
// given x position, spanning the lower half of the frame. The caller closes
// it.
func LaneFrame(width, height int, lineXs ...int) *gocv.Mat {
	m := RoadFrame(width, height)
	for _, x := range lineXs {
		gocv.Line(m, image.Pt(x, height/2+10), image.Pt(x, height-10), lanePaint, lineThickness)
	}
	return m
}

// CrossBarFrame returns a road frame with only a horizontal white bar at the
// given y position, the kind of paint the segment filters must reject. The
// caller closes it.
func CrossBarFrame(width, height int, y int) *gocv.Mat {
	m := RoadFrame(width, height)
	gocv.Line(m, image.Pt(40, y), image.Pt(width-40, y), lanePaint, lineThickness)
	return m
}
