package vision

import "gocv.io/x/gocv"

// MockDetector is a test implementation of the Detector interface. It lets
// tests script the segment sets the pipeline sees each frame.
type MockDetector struct {
	queue    [][]Segment
	segments []Segment
	err      error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSegments sets the segments returned by every subsequent Detect call.
func (m *MockDetector) SetSegments(segments []Segment) {
	m.segments = segments
	m.queue = nil
}

// QueueSegments appends a per-frame segment set. Queued sets are returned
// one per Detect call before falling back to the fixed segments.
func (m *MockDetector) QueueSegments(segments []Segment) {
	m.queue = append(m.queue, segments)
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured segments or error.
func (m *MockDetector) Detect(roi *gocv.Mat) ([]Segment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.segments, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
