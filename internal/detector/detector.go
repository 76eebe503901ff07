package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for single-person pose detection implementations.
// Implementations must be safe to share between goroutines.
type Detector interface {
	// Detect analyzes a 3-channel BGR frame and returns the detected pose.
	// Returns nil if no person is detected.
	Detect(frame *gocv.Mat) (*PoseLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Sequential is implemented by detectors whose result for a frame depends on
// the frames sent before it. Begin claims the detector for one clip and clears
// its tracking state; the returned function releases the claim.
type Sequential interface {
	Begin() (end func())
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the MediaPipe Pose model (0, 1 or 2).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// StaticImageMode disables tracking between consecutive frames.
	StaticImageMode bool

	// ScriptPath overrides the location of pose_service.py.
	ScriptPath string

	// PythonPath overrides the interpreter used to run the service.
	PythonPath string

	// IdleTimeout shuts the service down after this long without a request.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
