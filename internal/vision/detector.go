package vision

import "gocv.io/x/gocv"

// Detector defines the interface for lane line detection implementations.
type Detector interface {
	// Detect analyzes a cropped ROI image and returns validated segments in
	// ROI-local coordinates. Returns an empty slice when no lines are found.
	Detect(roi *gocv.Mat) ([]Segment, error)

	// Close releases any resources held by the detector.
	Close() error
}
