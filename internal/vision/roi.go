package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"github.com/evzhukov/lanekeeper/internal/config"
)

// ErrEmptyFrame is returned when the input frame has no pixels.
var ErrEmptyFrame = errors.New("frame is empty")

// CropROI extracts the configured region of interest from a frame. It
// returns the sub-image together with the (top, left) pixel offsets that map
// ROI-local coordinates back to frame coordinates.
//
// The returned Mat is a view into the frame; the caller closes it before the
// frame itself.
func CropROI(frame *gocv.Mat, roi config.ROI) (gocv.Mat, int, int, error) {
	if frame == nil || frame.Empty() {
		return gocv.Mat{}, 0, 0, ErrEmptyFrame
	}

	w := frame.Cols()
	h := frame.Rows()

	top := int(roi.Top * float64(h))
	bottom := int(roi.Bottom * float64(h))
	left := int(roi.Left * float64(w))
	right := int(roi.Right * float64(w))

	if bottom <= top || right <= left {
		return gocv.Mat{}, 0, 0, ErrEmptyFrame
	}

	rect := image.Rect(left, top, right, bottom)
	region := frame.Region(rect)

	return region, top, left, nil
}
