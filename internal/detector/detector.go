package detector

import "gocv.io/x/gocv"

// PoseEstimator produces scored body keypoint sets for a video frame.
type PoseEstimator interface {
	// EstimateBodyPoses analyzes a frame and returns every detected body.
	// Returns an empty slice if nobody is in view.
	EstimateBodyPoses(frame *gocv.Mat) ([]BodyPose, error)
}

// HandEstimator produces hand landmark sets for a video frame.
type HandEstimator interface {
	// EstimateHands analyzes a frame and returns every detected hand.
	// Returns an empty slice if no hands are detected.
	EstimateHands(frame *gocv.Mat) ([]HandPose, error)
}

// Config holds configuration options for the estimators.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 4).
	MaxHands int `mapstructure:"max_hands"`

	// MaxPoses is the maximum number of bodies to detect (default: 6).
	MaxPoses int `mapstructure:"max_poses"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `mapstructure:"min_confidence"`

	// ScriptPath overrides the location of the estimator service script.
	ScriptPath string `mapstructure:"script_path"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      4,
		MaxPoses:      6,
		MinConfidence: 0.5,
	}
}
