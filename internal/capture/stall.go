package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/evzhukov/lanekeeper/internal/config"
)

// Frame differencing constants.
const (
	// stallBlurSize is the Gaussian blur kernel used before differencing.
	stallBlurSize = 21
	// stallDiffThreshold is the binary threshold for per-pixel change.
	stallDiffThreshold = 25
)

// StallDetector watches for a frozen camera feed. A feed that keeps
// delivering the same pixels is worse than a dead one: the controller would
// keep steering on stale observations. It compares consecutive frames by
// blurred differencing and counts how many in a row are effectively
// identical.
type StallDetector struct {
	cfg         config.Watchdog
	prevGray    gocv.Mat
	streak      int
	initialized bool
	mu          sync.Mutex
}

// NewStallDetector creates a StallDetector with the given settings.
func NewStallDetector(cfg config.Watchdog) *StallDetector {
	return &StallDetector{
		cfg:      cfg,
		prevGray: gocv.NewMat(),
	}
}

// Observe compares a frame against its predecessor. It returns whether the
// feed is considered stalled and the percentage of pixels that changed.
func (d *StallDetector) Observe(frame *gocv.Mat) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: stallBlurSize, Y: stallBlurSize}, 0, 0, gocv.BorderDefault)

	if !d.initialized {
		blurred.CopyTo(&d.prevGray)
		d.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, d.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, stallDiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&d.prevGray)

	if changePercent < d.cfg.MinChangePercent {
		d.streak++
	} else {
		d.streak = 0
	}

	return d.streak >= d.cfg.StallFrames, changePercent
}

// Reset clears the detector so it can rebaseline on the next frame.
func (d *StallDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.prevGray.Empty() {
		d.prevGray.Close()
		d.prevGray = gocv.NewMat()
	}
	d.initialized = false
	d.streak = 0
}

// Close releases resources used by the detector.
func (d *StallDetector) Close() {
	d.Reset()
}
