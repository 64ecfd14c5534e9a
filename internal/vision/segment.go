// Package vision turns camera frames into validated lane line segments.
package vision

import "math"

// Segment is a detected line segment. Coordinates are ROI-local as produced
// by the detector and frame-global after Translate.
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	dx := s.X2 - s.X1
	dy := s.Y2 - s.Y1
	return math.Hypot(dx, dy)
}

// AngleDeg returns the orientation in degrees, normalized to [0, 180).
func (s Segment) AngleDeg() float64 {
	deg := math.Atan2(s.Y2-s.Y1, s.X2-s.X1) * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	if deg >= 180 {
		deg -= 180
	}
	return deg
}

// RunOverRise returns |dx/dy|. Lane boundaries are near vertical in image
// space, so a large value marks horizontal clutter. A zero rise returns +Inf.
func (s Segment) RunOverRise() float64 {
	dy := s.Y2 - s.Y1
	if dy == 0 {
		return math.Inf(1)
	}
	return math.Abs((s.X2 - s.X1) / dy)
}

// MidX returns the x coordinate of the segment midpoint.
func (s Segment) MidX() float64 {
	return (s.X1 + s.X2) / 2
}

// Translate returns the segment shifted by (dx, dy), mapping ROI-local
// coordinates back into the frame.
func (s Segment) Translate(dx, dy float64) Segment {
	return Segment{
		X1: s.X1 + dx, Y1: s.Y1 + dy,
		X2: s.X2 + dx, Y2: s.Y2 + dy,
	}
}
