package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamHandler serves the annotated debug frames as an MJPEG stream.
type StreamHandler struct {
	controller Controller
}

// NewStreamHandler creates a new StreamHandler over the controller.
func NewStreamHandler(controller Controller) *StreamHandler {
	return &StreamHandler{controller: controller}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastIndex := -1
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		snap := h.controller.Snapshot()
		if snap.JPEG == nil || snap.FrameIndex == lastIndex {
			time.Sleep(33 * time.Millisecond)
			continue
		}
		lastIndex = snap.FrameIndex

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(snap.JPEG))
		w.Write(snap.JPEG)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(33 * time.Millisecond)
	}
}
