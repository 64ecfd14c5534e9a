package vision

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/evzhukov/lanekeeper/internal/config"
)

// Segmenter extracts white lane line segments from a cropped ROI image by
// fusing three color-space masks, cleaning the result morphologically, and
// running a probabilistic line transform over the edges.
type Segmenter struct {
	cfg         config.Segmenter
	closeKernel gocv.Mat
	openKernel  gocv.Mat
}

// NewSegmenter creates a Segmenter with the given parameters.
func NewSegmenter(cfg config.Segmenter) *Segmenter {
	return &Segmenter{
		cfg:         cfg,
		closeKernel: gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.CloseKernel, cfg.CloseKernel)),
		openKernel:  gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.OpenKernel, cfg.OpenKernel)),
	}
}

// Close releases the morphology kernels.
func (sg *Segmenter) Close() error {
	sg.closeKernel.Close()
	sg.openKernel.Close()
	return nil
}

// Detect returns validated line segments found in the ROI. An empty or
// featureless ROI yields an empty slice, not an error.
func (sg *Segmenter) Detect(roi *gocv.Mat) ([]Segment, error) {
	if roi == nil || roi.Empty() {
		return nil, nil
	}

	mask := sg.BuildMask(roi)
	defer mask.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(mask, &edges, sg.cfg.CannyLow, sg.cfg.CannyHigh)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180,
		sg.cfg.HoughThreshold, sg.cfg.HoughMinLength, sg.cfg.HoughMaxGap)

	var segments []Segment
	for i := 0; i < lines.Rows(); i++ {
		v := lines.GetVeciAt(i, 0)
		seg := Segment{
			X1: float64(v[0]), Y1: float64(v[1]),
			X2: float64(v[2]), Y2: float64(v[3]),
		}
		if sg.valid(seg, roi.Cols(), roi.Rows()) {
			segments = append(segments, seg)
		}
	}

	return segments, nil
}

// BuildMask fuses the grayscale, HSV and Lab masks and cleans the result.
// The mask exists for debug visualization; downstream logic only ever sees
// segments. The caller closes the returned Mat.
func (sg *Segmenter) BuildMask(roi *gocv.Mat) gocv.Mat {
	grayMask := sg.grayMask(roi)
	defer grayMask.Close()

	hsvMask := sg.hsvMask(roi)
	defer hsvMask.Close()

	labMask := sg.labMask(roi)
	defer labMask.Close()

	// Any method voting "line" keeps the pixel; recall beats precision
	// against paint wear and lighting changes.
	combined := gocv.NewMat()
	gocv.BitwiseOr(grayMask, hsvMask, &combined)
	gocv.BitwiseOr(combined, labMask, &combined)

	gocv.MorphologyEx(combined, &combined, gocv.MorphClose, sg.closeKernel)
	gocv.MorphologyEx(combined, &combined, gocv.MorphOpen, sg.openKernel)

	return combined
}

func (sg *Segmenter) grayMask(roi *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()

	if roi.Channels() > 1 {
		gocv.CvtColor(*roi, &gray, gocv.ColorBGRToGray)
	} else {
		roi.CopyTo(&gray)
	}

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, float32(sg.cfg.GrayThreshold), 255, gocv.ThresholdBinary)
	return mask
}

func (sg *Segmenter) hsvMask(roi *gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*roi, &hsv, gocv.ColorBGRToHSV)

	lower := gocv.NewScalar(sg.cfg.HSVLowH, sg.cfg.HSVLowS, sg.cfg.HSVLowV, 0)
	upper := gocv.NewScalar(sg.cfg.HSVHiH, sg.cfg.HSVHiS, sg.cfg.HSVHiV, 0)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}

func (sg *Segmenter) labMask(roi *gocv.Mat) gocv.Mat {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*roi, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	mask := gocv.NewMat()
	gocv.Threshold(channels[0], &mask, float32(sg.cfg.LabLThreshold), 255, gocv.ThresholdBinary)
	return mask
}

// valid applies the geometric filters to a candidate segment.
func (sg *Segmenter) valid(seg Segment, roiW, roiH int) bool {
	if seg.Length() < sg.cfg.MinSegmentLength {
		return false
	}

	w := float64(roiW)
	h := float64(roiH)
	if seg.X1 < 0 || seg.X1 > w || seg.X2 < 0 || seg.X2 > w ||
		seg.Y1 < 0 || seg.Y1 > h || seg.Y2 < 0 || seg.Y2 > h {
		return false
	}

	// Near-horizontal segments are road edges, shadows, or stop bars,
	// never lane boundaries.
	angle := seg.AngleDeg()
	if angle < sg.cfg.MinAngleDeg || angle > 180-sg.cfg.MinAngleDeg {
		return false
	}

	// Overlaps the angle check for most inputs, but also catches segments
	// whose rounded coordinates pass the angle test with an extreme ratio.
	if seg.RunOverRise() > sg.cfg.MaxRunOverRise {
		return false
	}

	return true
}
