package detector

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrMalformed is returned when estimator output does not have the shape the
// rest of the pipeline relies on. It is never silently coerced.
var ErrMalformed = errors.New("malformed estimator output")

// RawKeypoint is a keypoint as reported by an estimator. Optional fields are
// pointers so that absence can be told apart from zero.
type RawKeypoint struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Z     *float64 `json:"z,omitempty"`
	Score *float64 `json:"score,omitempty"`
	Name  string   `json:"name"`
}

// RawBox is a bounding box as reported by the body estimator.
type RawBox struct {
	XMin   float64 `json:"xMin"`
	YMin   float64 `json:"yMin"`
	XMax   float64 `json:"xMax"`
	YMax   float64 `json:"yMax"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RawBodyPose is a body pose as reported by the body estimator.
type RawBodyPose struct {
	Keypoints []RawKeypoint `json:"keypoints"`
	Box       *RawBox       `json:"box,omitempty"`
	ID        *int          `json:"id,omitempty"`
	Score     *float64      `json:"score,omitempty"`
}

// RawHand is a hand as reported by the hand estimator.
type RawHand struct {
	Keypoints   []RawKeypoint `json:"keypoints"`
	Keypoints3D []RawKeypoint `json:"keypoints3D"`
	Handedness  string        `json:"handedness"`
	Score       float64       `json:"score"`
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

// ConvertBodyPose validates a raw body pose and converts it to a BodyPose.
func ConvertBodyPose(raw RawBodyPose) (BodyPose, error) {
	var pose BodyPose

	if raw.Box == nil || raw.ID == nil || raw.Score == nil {
		return pose, malformed("body pose is missing box, id or score")
	}
	if len(raw.Keypoints) != NumBodyKeypoints {
		return pose, malformed("body pose has %d keypoints, expected %d", len(raw.Keypoints), NumBodyKeypoints)
	}

	for i, kp := range raw.Keypoints {
		if kp.Name == "" || kp.Score == nil {
			return pose, malformed("body keypoint %d is missing name or score", i)
		}
		pose.Keypoints[i] = Keypoint{Point: r2.Point{X: kp.X, Y: kp.Y}, Score: *kp.Score}
	}

	pose.Box = Box{
		Min: r2.Point{X: raw.Box.XMin, Y: raw.Box.YMin},
		Max: r2.Point{X: raw.Box.XMax, Y: raw.Box.YMax},
	}
	pose.ID = *raw.ID
	pose.Score = *raw.Score

	return pose, nil
}

// ConvertHandPose validates a raw hand and converts it to a HandPose.
func ConvertHandPose(raw RawHand) (HandPose, error) {
	hand := HandPose{
		Handedness:    raw.Handedness,
		PredictedLeft: PredictedLeftFromLabel(raw.Handedness),
		Score:         raw.Score,
	}

	if len(raw.Keypoints) != NumLandmarks || len(raw.Keypoints3D) != NumLandmarks {
		return hand, malformed("hand has %d/%d keypoints, expected %d",
			len(raw.Keypoints), len(raw.Keypoints3D), NumLandmarks)
	}

	for i := 0; i < NumLandmarks; i++ {
		kp := raw.Keypoints[i]
		kp3 := raw.Keypoints3D[i]
		if kp.Name == "" || kp3.Name == "" {
			return hand, malformed("hand keypoint %d is missing its name", i)
		}
		if kp3.Z == nil {
			return hand, malformed("hand keypoint %d (%s) has no depth", i, kp3.Name)
		}
		hand.Keypoints[i] = r2.Point{X: kp.X, Y: kp.Y}
		hand.Keypoints3D[i] = r3.Vector{X: kp3.X, Y: kp3.Y, Z: *kp3.Z}
	}

	return hand, nil
}

// ConvertBodyPoses converts a whole estimator response. The first malformed
// pose fails the call.
func ConvertBodyPoses(raw []RawBodyPose) ([]BodyPose, error) {
	poses := make([]BodyPose, len(raw))
	for i, r := range raw {
		p, err := ConvertBodyPose(r)
		if err != nil {
			return nil, errors.Wrapf(err, "pose %d", i)
		}
		poses[i] = p
	}
	return poses, nil
}

// ConvertHandPoses converts a whole estimator response. The first malformed
// hand fails the call.
func ConvertHandPoses(raw []RawHand) ([]HandPose, error) {
	hands := make([]HandPose, len(raw))
	for i, r := range raw {
		h, err := ConvertHandPose(r)
		if err != nil {
			return nil, errors.Wrapf(err, "hand %d", i)
		}
		hands[i] = h
	}
	return hands, nil
}
