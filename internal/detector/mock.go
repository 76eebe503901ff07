package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	pose   *PoseLandmarks
	err    error
	fn     func(frame *gocv.Mat) (*PoseLandmarks, error)
	calls  int
	closed bool

	sessions     int
	openSessions int

	mu sync.Mutex
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect.
// A nil pose simulates frames with no person in them.
func (m *MockDetector) SetPose(pose *PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = pose
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDetectFunc makes Detect delegate to fn, taking precedence over SetPose and SetError.
func (m *MockDetector) SetDetectFunc(fn func(frame *gocv.Mat) (*PoseLandmarks, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*PoseLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.fn != nil {
		return m.fn(frame)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.pose == nil {
		return nil, nil
	}
	pose := *m.pose
	return &pose, nil
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Begin records the start of a clip. The returned function records its end.
func (m *MockDetector) Begin() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	m.openSessions++

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.openSessions--
		})
	}
}

// Sessions returns how many clips were begun and how many are still open.
func (m *MockDetector) Sessions() (begun, open int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions, m.openSessions
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MountainPoseLandmarks returns a preset PoseLandmarks for a person standing
// upright facing the camera with arms at their sides (Tadasana).
func MountainPoseLandmarks() PoseLandmarks {
	lm := PoseLandmarks{Score: 0.98}

	// Head
	lm.Points[Nose] = Point3D{X: 0.50, Y: 0.15, Z: -0.30}
	lm.Points[LeftEyeInner] = Point3D{X: 0.51, Y: 0.13, Z: -0.29}
	lm.Points[LeftEye] = Point3D{X: 0.52, Y: 0.13, Z: -0.29}
	lm.Points[LeftEyeOuter] = Point3D{X: 0.53, Y: 0.13, Z: -0.29}
	lm.Points[RightEyeInner] = Point3D{X: 0.49, Y: 0.13, Z: -0.29}
	lm.Points[RightEye] = Point3D{X: 0.48, Y: 0.13, Z: -0.29}
	lm.Points[RightEyeOuter] = Point3D{X: 0.47, Y: 0.13, Z: -0.29}
	lm.Points[LeftEar] = Point3D{X: 0.54, Y: 0.14, Z: -0.15}
	lm.Points[RightEar] = Point3D{X: 0.46, Y: 0.14, Z: -0.15}
	lm.Points[MouthLeft] = Point3D{X: 0.51, Y: 0.17, Z: -0.27}
	lm.Points[MouthRight] = Point3D{X: 0.49, Y: 0.17, Z: -0.27}

	// Arms hanging at the sides
	lm.Points[LeftShoulder] = Point3D{X: 0.56, Y: 0.25, Z: -0.05}
	lm.Points[RightShoulder] = Point3D{X: 0.44, Y: 0.25, Z: -0.05}
	lm.Points[LeftElbow] = Point3D{X: 0.58, Y: 0.38, Z: -0.03}
	lm.Points[RightElbow] = Point3D{X: 0.42, Y: 0.38, Z: -0.03}
	lm.Points[LeftWrist] = Point3D{X: 0.59, Y: 0.50, Z: -0.05}
	lm.Points[RightWrist] = Point3D{X: 0.41, Y: 0.50, Z: -0.05}
	lm.Points[LeftPinky] = Point3D{X: 0.59, Y: 0.53, Z: -0.06}
	lm.Points[RightPinky] = Point3D{X: 0.41, Y: 0.53, Z: -0.06}
	lm.Points[LeftIndex] = Point3D{X: 0.58, Y: 0.54, Z: -0.07}
	lm.Points[RightIndex] = Point3D{X: 0.42, Y: 0.54, Z: -0.07}
	lm.Points[LeftThumb] = Point3D{X: 0.58, Y: 0.52, Z: -0.06}
	lm.Points[RightThumb] = Point3D{X: 0.42, Y: 0.52, Z: -0.06}

	// Legs straight, feet together
	lm.Points[LeftHip] = Point3D{X: 0.54, Y: 0.55, Z: 0.00}
	lm.Points[RightHip] = Point3D{X: 0.46, Y: 0.55, Z: 0.00}
	lm.Points[LeftKnee] = Point3D{X: 0.54, Y: 0.72, Z: 0.01}
	lm.Points[RightKnee] = Point3D{X: 0.46, Y: 0.72, Z: 0.01}
	lm.Points[LeftAnkle] = Point3D{X: 0.53, Y: 0.90, Z: 0.05}
	lm.Points[RightAnkle] = Point3D{X: 0.47, Y: 0.90, Z: 0.05}
	lm.Points[LeftHeel] = Point3D{X: 0.53, Y: 0.92, Z: 0.07}
	lm.Points[RightHeel] = Point3D{X: 0.47, Y: 0.92, Z: 0.07}
	lm.Points[LeftFootIndex] = Point3D{X: 0.54, Y: 0.95, Z: -0.02}
	lm.Points[RightFootIndex] = Point3D{X: 0.46, Y: 0.95, Z: -0.02}

	return lm
}

// TreePoseLandmarks returns a preset PoseLandmarks for Vrksasana: standing on
// the left leg, right foot pressed to the inner left thigh, palms joined overhead.
func TreePoseLandmarks() PoseLandmarks {
	lm := MountainPoseLandmarks()

	// Arms raised overhead, hands together
	lm.Points[LeftElbow] = Point3D{X: 0.55, Y: 0.12, Z: -0.08}
	lm.Points[RightElbow] = Point3D{X: 0.45, Y: 0.12, Z: -0.08}
	lm.Points[LeftWrist] = Point3D{X: 0.51, Y: 0.02, Z: -0.10}
	lm.Points[RightWrist] = Point3D{X: 0.49, Y: 0.02, Z: -0.10}
	lm.Points[LeftPinky] = Point3D{X: 0.51, Y: 0.00, Z: -0.11}
	lm.Points[RightPinky] = Point3D{X: 0.49, Y: 0.00, Z: -0.11}
	lm.Points[LeftIndex] = Point3D{X: 0.50, Y: -0.01, Z: -0.12}
	lm.Points[RightIndex] = Point3D{X: 0.50, Y: -0.01, Z: -0.12}
	lm.Points[LeftThumb] = Point3D{X: 0.50, Y: 0.01, Z: -0.12}
	lm.Points[RightThumb] = Point3D{X: 0.50, Y: 0.01, Z: -0.12}

	// Right knee turned out, right foot on the inner left thigh
	lm.Points[RightKnee] = Point3D{X: 0.34, Y: 0.66, Z: 0.04}
	lm.Points[RightAnkle] = Point3D{X: 0.50, Y: 0.64, Z: 0.02}
	lm.Points[RightHeel] = Point3D{X: 0.51, Y: 0.62, Z: 0.03}
	lm.Points[RightFootIndex] = Point3D{X: 0.50, Y: 0.70, Z: 0.00}

	return lm
}

// ShiftedLandmarks returns a copy of lm translated by (dx, dy) in image coordinates.
// It is used to simulate the same pose filmed slightly off-centre.
func ShiftedLandmarks(lm PoseLandmarks, dx, dy float64) PoseLandmarks {
	shifted := lm
	for i := range shifted.Points {
		shifted.Points[i].X += dx
		shifted.Points[i].Y += dy
	}
	return shifted
}
