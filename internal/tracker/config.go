package tracker

// PersonSelectionConfig weighs body pose candidates against each other.
type PersonSelectionConfig struct {
	// ScoreMultiplier scales the estimator's pose confidence.
	ScoreMultiplier float64 `json:"score_multiplier" mapstructure:"score_multiplier"`
	// CenterDistanceMultiplier scales the penalty for the nose being off the
	// frame's horizontal center.
	CenterDistanceMultiplier float64 `json:"center_distance_multiplier" mapstructure:"center_distance_multiplier"`
	// MaxPoseDistance is the pose distance above which the two best
	// candidates are considered different people.
	MaxPoseDistance float64 `json:"max_pose_distance" mapstructure:"max_pose_distance"`
	// MinFitnessOffset is the fitness lead the best candidate needs over a
	// different person to still be selected.
	MinFitnessOffset float64 `json:"min_fitness_offset" mapstructure:"min_fitness_offset"`
}

// HandAssignmentConfig controls how detected hands are split between sides.
type HandAssignmentConfig struct {
	MinHandScore            float64 `json:"min_hand_score" mapstructure:"min_hand_score"`
	RawScoreMultiplier      float64 `json:"raw_score_multiplier" mapstructure:"raw_score_multiplier"`
	HandednessMultiplier    float64 `json:"handedness_multiplier" mapstructure:"handedness_multiplier"`
	DistanceMultiplier      float64 `json:"distance_multiplier" mapstructure:"distance_multiplier"`
	DistanceDeltaMultiplier float64 `json:"distance_delta_multiplier" mapstructure:"distance_delta_multiplier"`
	// WristScoreThreshold is the confidence below which the person's wrist is
	// replaced by the side's previously matched wrist.
	WristScoreThreshold float64 `json:"wrist_score_threshold" mapstructure:"wrist_score_threshold"`
	// MaxHandWristDistanceAccurate and MaxHandWristDistanceFuzzy are fractions
	// of the frame size.
	MaxHandWristDistanceAccurate float64 `json:"max_hand_wrist_distance_accurate" mapstructure:"max_hand_wrist_distance_accurate"`
	MaxHandWristDistanceFuzzy    float64 `json:"max_hand_wrist_distance_fuzzy" mapstructure:"max_hand_wrist_distance_fuzzy"`
}

// TrackingConfig controls temporal continuity of each hand.
type TrackingConfig struct {
	// WristScoreThreshold gates both wrist offset recording and extrapolation.
	WristScoreThreshold float64 `json:"wrist_score_threshold" mapstructure:"wrist_score_threshold"`
}

// Config holds every threshold and weight used by the Tracker.
type Config struct {
	PersonSelection PersonSelectionConfig `json:"person_selection" mapstructure:"person_selection"`
	HandAssignment  HandAssignmentConfig  `json:"hand_assignment" mapstructure:"hand_assignment"`
	Tracking        TrackingConfig        `json:"tracking" mapstructure:"tracking"`
}

// DefaultConfig returns the tuned default weights.
func DefaultConfig() Config {
	return Config{
		PersonSelection: PersonSelectionConfig{
			ScoreMultiplier:          1.0,
			CenterDistanceMultiplier: 2.0,
			MaxPoseDistance:          1.0,
			MinFitnessOffset:         0.2,
		},
		HandAssignment: HandAssignmentConfig{
			MinHandScore:                 0.3,
			RawScoreMultiplier:           3.0,
			HandednessMultiplier:         4.0,
			DistanceMultiplier:           70.0,
			DistanceDeltaMultiplier:      100.0,
			WristScoreThreshold:          0.2,
			MaxHandWristDistanceAccurate: 0.1,
			MaxHandWristDistanceFuzzy:    0.1,
		},
		Tracking: TrackingConfig{
			WristScoreThreshold: 0.2,
		},
	}
}
