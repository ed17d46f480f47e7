// Package detector provides the per-frame snapshot model produced by the body
// and hand pose estimators, along with the estimator interfaces themselves.
package detector

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Body keypoint indices following the MoveNet / COCO convention.
const (
	Nose             = 0
	LeftEye          = 1
	RightEye         = 2
	LeftEar          = 3
	RightEar         = 4
	LeftShoulder     = 5
	RightShoulder    = 6
	LeftElbow        = 7
	RightElbow       = 8
	LeftWrist        = 9
	RightWrist       = 10
	LeftHip          = 11
	RightHip         = 12
	LeftKnee         = 13
	RightKnee        = 14
	LeftAnkle        = 15
	RightAnkle       = 16
	NumBodyKeypoints = 17
)

// LandmarkNames holds the upstream name of each hand landmark by index.
var LandmarkNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_finger_mcp", "index_finger_pip", "index_finger_dip", "index_finger_tip",
	"middle_finger_mcp", "middle_finger_pip", "middle_finger_dip", "middle_finger_tip",
	"ring_finger_mcp", "ring_finger_pip", "ring_finger_dip", "ring_finger_tip",
	"pinky_finger_mcp", "pinky_finger_pip", "pinky_finger_dip", "pinky_finger_tip",
}

// BodyKeypointNames holds the upstream name of each body keypoint by index.
var BodyKeypointNames = [NumBodyKeypoints]string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// Keypoint is a 2-D image position with the estimator's confidence in [0,1].
type Keypoint struct {
	r2.Point
	Score float64 `json:"score"`
}

// Box is an axis-aligned bounding box in image pixels.
type Box struct {
	Min r2.Point `json:"min"`
	Max r2.Point `json:"max"`
}

// BodyPose is one detected body. It is replaced wholesale every frame.
type BodyPose struct {
	Keypoints [NumBodyKeypoints]Keypoint `json:"keypoints"`
	Box       Box                        `json:"box"`
	ID        int                        `json:"id"`
	Score     float64                    `json:"score"`
}

// Nose returns the nose keypoint.
func (p *BodyPose) Nose() Keypoint { return p.Keypoints[Nose] }

// LeftWrist returns the person's left wrist keypoint.
func (p *BodyPose) LeftWrist() Keypoint { return p.Keypoints[LeftWrist] }

// RightWrist returns the person's right wrist keypoint.
func (p *BodyPose) RightWrist() Keypoint { return p.Keypoints[RightWrist] }

// HandPose is one detected hand with its 21 landmarks in image space and in
// 3-D, plus the estimator's handedness guess.
type HandPose struct {
	Keypoints   [NumLandmarks]r2.Point  `json:"keypoints"`
	Keypoints3D [NumLandmarks]r3.Vector `json:"keypoints3D"`

	// Handedness is the raw upstream label ("Left" or "Right").
	Handedness string `json:"handedness"`
	// PredictedLeft is the upstream label after the mirror correction in
	// PredictedLeftFromLabel.
	PredictedLeft bool    `json:"predictedLeft"`
	Score         float64 `json:"score"`
}

// Wrist returns the 2-D wrist landmark.
func (h *HandPose) Wrist() r2.Point { return h.Keypoints[Wrist] }

// IndexBase returns the 2-D index finger knuckle.
func (h *HandPose) IndexBase() r2.Point { return h.Keypoints[IndexMCP] }

// PinkyBase returns the 2-D pinky knuckle.
func (h *HandPose) PinkyBase() r2.Point { return h.Keypoints[PinkyMCP] }

// mirroredLeftLabel is the upstream handedness label that actually denotes the
// person's left hand. The hand estimator labels hands as if the image were
// mirrored, so "Right" means left. Do not "fix" this: it would swap hands.
const mirroredLeftLabel = "Right"

// PredictedLeftFromLabel maps a raw upstream handedness label to whether the
// hand is predicted to be the person's left hand.
func PredictedLeftFromLabel(label string) bool {
	return label == mirroredLeftLabel
}

// Detections is everything both estimators reported for one frame.
type Detections struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Poses  []BodyPose `json:"poses"`
	Hands  []HandPose `json:"hands"`
}

// FrameSize returns the larger image dimension, used to turn pixel distances
// into scale-invariant ratios.
func (d *Detections) FrameSize() float64 {
	return float64(max(d.Width, d.Height))
}
