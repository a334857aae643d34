package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/vigil/internal/face"
)

// MockDetector is a test implementation of the Detector interface.
// It returns a fixed face, or plays back a scripted sequence one frame per call.
type MockDetector struct {
	mu       sync.Mutex
	face     *face.Landmarks
	sequence []*face.Landmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector that sees no face.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by every Detect call. Nil means no face.
func (m *MockDetector) SetFace(lm *face.Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = lm
}

// SetSequence queues per-frame results. Once drained, Detect falls back to SetFace.
func (m *MockDetector) SetSequence(seq []*face.Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = append([]*face.Landmarks(nil), seq...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect calls.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted face, the fixed face, or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*face.Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
