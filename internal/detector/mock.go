package detector

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of PoseEstimator and HandEstimator.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	poses    []BodyPose
	hands    []HandPose
	poseErr  error
	handErr  error
	calls    int
	closeErr error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the bodies that will be returned by EstimateBodyPoses.
func (m *MockDetector) SetPoses(poses []BodyPose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
}

// SetHands sets the hands that will be returned by EstimateHands.
func (m *MockDetector) SetHands(hands []HandPose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by both estimators.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poseErr = err
	m.handErr = err
}

// SetHandError sets an error returned only by EstimateHands.
func (m *MockDetector) SetHandError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handErr = err
}

// Calls returns how many estimator calls have been made.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// EstimateBodyPoses returns the pre-configured poses or error.
func (m *MockDetector) EstimateBodyPoses(frame *gocv.Mat) ([]BodyPose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.poseErr != nil {
		return nil, m.poseErr
	}
	return m.poses, nil
}

// EstimateHands returns the pre-configured hands or error.
func (m *MockDetector) EstimateHands(frame *gocv.Mat) ([]HandPose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.handErr != nil {
		return nil, m.handErr
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return m.closeErr
}

// StandingPose returns a body facing the camera with its neck at center.
// scale is roughly the shoulder-to-hip distance in pixels and every keypoint
// carries the given score.
func StandingPose(center r2.Point, scale, score float64) BodyPose {
	// Offsets in units of scale. The person's left side appears on the
	// image's right.
	offsets := [NumBodyKeypoints]r2.Point{
		Nose:          {X: 0, Y: -0.6},
		LeftEye:       {X: 0.08, Y: -0.68},
		RightEye:      {X: -0.08, Y: -0.68},
		LeftEar:       {X: 0.16, Y: -0.64},
		RightEar:      {X: -0.16, Y: -0.64},
		LeftShoulder:  {X: 0.35, Y: 0},
		RightShoulder: {X: -0.35, Y: 0},
		LeftElbow:     {X: 0.5, Y: 0.5},
		RightElbow:    {X: -0.5, Y: 0.5},
		LeftWrist:     {X: 0.55, Y: 0.95},
		RightWrist:    {X: -0.55, Y: 0.95},
		LeftHip:       {X: 0.2, Y: 1.1},
		RightHip:      {X: -0.2, Y: 1.1},
		LeftKnee:      {X: 0.22, Y: 1.7},
		RightKnee:     {X: -0.22, Y: 1.7},
		LeftAnkle:     {X: 0.22, Y: 2.3},
		RightAnkle:    {X: -0.22, Y: 2.3},
	}

	pose := BodyPose{Score: score}
	for i, off := range offsets {
		pose.Keypoints[i] = Keypoint{Point: center.Add(off.Mul(scale)), Score: score}
	}
	pose.Box = Box{
		Min: center.Add(r2.Point{X: -0.6, Y: -0.8}.Mul(scale)),
		Max: center.Add(r2.Point{X: 0.6, Y: 2.4}.Mul(scale)),
	}
	return pose
}

// Knuckle positions relative to the wrist in hand units, thumb to pinky.
// Image y grows downward, so the fingers point up.
var knuckles = [5]r3.Vector{
	{X: 0.25, Y: -0.15},
	{X: 0.25, Y: -0.8},
	{X: 0.05, Y: -0.85},
	{X: -0.15, Y: -0.8},
	{X: -0.35, Y: -0.7},
}

const segmentLength = 0.3

// buildHand lays out the 21 landmarks with every finger turning by turn
// radians at each joint, curling toward the camera. A turn of zero yields
// straight fingers.
func buildHand(wrist r2.Point, scale float64, predictedLeft bool, score, turn float64) HandPose {
	hand := HandPose{
		PredictedLeft: predictedLeft,
		Score:         score,
	}
	if predictedLeft {
		hand.Handedness = mirroredLeftLabel
	} else {
		hand.Handedness = "Left"
	}

	pts := &hand.Keypoints3D
	pts[Wrist] = r3.Vector{}
	toward := r3.Vector{Z: -1}

	for finger := 0; finger < 5; finger++ {
		base := finger*4 + 1
		d0 := knuckles[finger].Normalize()
		pts[base] = knuckles[finger]
		for joint := 1; joint < 4; joint++ {
			a := float64(joint) * turn
			dir := d0.Mul(math.Cos(a)).Add(toward.Mul(math.Sin(a)))
			pts[base+joint] = pts[base+joint-1].Add(dir.Mul(segmentLength))
		}
	}

	for i, p := range pts {
		hand.Keypoints[i] = wrist.Add(r2.Point{X: p.X, Y: p.Y}.Mul(scale))
	}
	return hand
}

// OpenHand returns a hand with all five fingers straight, wrist at the given
// image position. scale is the number of pixels per hand unit.
func OpenHand(wrist r2.Point, scale float64, predictedLeft bool, score float64) HandPose {
	return buildHand(wrist, scale, predictedLeft, score, 0)
}

// FistHand returns a hand with every joint folded to a 30 degree interior
// angle.
func FistHand(wrist r2.Point, scale float64, predictedLeft bool, score float64) HandPose {
	return buildHand(wrist, scale, predictedLeft, score, 5*math.Pi/6)
}
