// Package detector provides pose detection interfaces and types for asana checking.
package detector

// Pose landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
	ValuesPerPoint = 3
	VectorLen      = NumLandmarks * ValuesPerPoint
)

// Point3D represents a 3D point in image-relative coordinates.
// X and Y are in [0,1] of the frame width and height; Z is depth relative to the hips.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PoseLandmarks represents the 33 body landmarks detected for a single person.
type PoseLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// Vector flattens the landmarks into x, y, z triples in canonical model order.
// The result always has VectorLen values.
func (p *PoseLandmarks) Vector() []float64 {
	if p == nil {
		return nil
	}

	v := make([]float64, 0, VectorLen)
	for _, pt := range p.Points {
		v = append(v, pt.X, pt.Y, pt.Z)
	}
	return v
}
