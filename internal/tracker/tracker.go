// Package tracker follows a single person's two hands across frames of noisy
// body and hand estimator output.
//
// Each frame runs four stages in order: pick the person, split the detected
// hands between the person's sides, update each side's temporal track and
// infer palm orientation.
package tracker

import (
	"math"
	"sort"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/geom"
)

// Tracker owns the Person and both Hands. It is not safe for concurrent use;
// frames must be processed one at a time.
type Tracker struct {
	config Config
	clock  clock.Clock
	logger *zap.Logger

	person Person
	hands  [2]Hand

	width  int
	height int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used for last-seen and last-tracked timestamps.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a Tracker with empty state.
func New(config Config, opts ...Option) *Tracker {
	t := &Tracker{
		config: config,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config { return t.config }

// Person returns the currently selected person.
func (t *Tracker) Person() *Person { return &t.person }

// Hand returns the state for one side.
func (t *Tracker) Hand(side Side) *Hand { return &t.hands[side] }

// Process runs one frame through the pipeline.
func (t *Tracker) Process(d detector.Detections) {
	if t.width != 0 && (t.width != d.Width || t.height != d.Height) {
		t.logger.Warn("dimensions of input image changed",
			zap.Int("width", d.Width), zap.Int("height", d.Height),
			zap.Int("previous_width", t.width), zap.Int("previous_height", t.height))
	}
	t.width, t.height = d.Width, d.Height

	t.selectPerson(&d)
	t.assignHands(&d)
	t.updateTracks()
	t.inferOrientation()
}

// PoseDistance is the confidence weighted mean keypoint distance between two
// body poses, in pixels.
func PoseDistance(a, b *detector.BodyPose) float64 {
	var dist, scores float64
	for i := range a.Keypoints {
		ka, kb := a.Keypoints[i], b.Keypoints[i]
		dist += geom.Distance(ka.Point, kb.Point) * ka.Score * kb.Score
		scores += ka.Score + kb.Score
	}
	if scores == 0 {
		return 0
	}
	return dist / scores
}

func (t *Tracker) poseFitness(pose *detector.BodyPose, d *detector.Detections) float64 {
	cfg := t.config.PersonSelection
	offCenter := math.Abs(pose.Nose().X-float64(d.Width)/2) / d.FrameSize()
	return pose.Score*cfg.ScoreMultiplier - offCenter*cfg.CenterDistanceMultiplier
}

type candidate struct {
	pose    *detector.BodyPose
	fitness float64
}

func (t *Tracker) selectPerson(d *detector.Detections) {
	t.person.pose = nil
	if len(d.Poses) == 0 {
		return
	}

	ranked := make([]candidate, len(d.Poses))
	for i := range d.Poses {
		ranked[i] = candidate{pose: &d.Poses[i], fitness: t.poseFitness(&d.Poses[i], d)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].fitness > ranked[j].fitness
	})

	if len(ranked) >= 2 {
		cfg := t.config.PersonSelection
		dist := PoseDistance(ranked[0].pose, ranked[1].pose)
		gap := ranked[0].fitness - ranked[1].fitness
		if dist > cfg.MaxPoseDistance && gap < cfg.MinFitnessOffset {
			t.logger.Debug("multiple people",
				zap.Float64("pose_distance", dist), zap.Float64("fitness_gap", gap))
			return
		}
	}

	selected := *ranked[0].pose
	t.person.pose = &selected
}

// handedness scores how likely a hand belongs to the person's left side.
// Non-negative means left.
func (t *Tracker) handedness(hand *detector.HandPose, pose *detector.BodyPose) float64 {
	cfg := t.config.HandAssignment

	label := hand.Score
	if !hand.PredictedLeft {
		label = -label
	}
	if pose == nil {
		return label * cfg.RawScoreMultiplier
	}

	left, right := pose.LeftWrist(), pose.RightWrist()
	ldist := geom.Distance(hand.Wrist(), left.Point)
	rdist := geom.Distance(hand.Wrist(), right.Point)

	score := label * cfg.HandednessMultiplier
	score += rdist * cfg.DistanceMultiplier * right.Score
	score -= ldist * cfg.DistanceMultiplier * left.Score
	score += (rdist - ldist) * cfg.DistanceDeltaMultiplier * right.Score * left.Score
	return score
}

func (t *Tracker) assignHands(d *detector.Detections) {
	for i := range t.hands {
		t.hands[i].pose = nil
	}

	pose := t.person.pose
	frameSize := d.FrameSize()
	if pose == nil || frameSize <= 0 {
		return
	}

	cfg := t.config.HandAssignment
	var pools [2][]*detector.HandPose
	for i := range d.Hands {
		h := &d.Hands[i]
		if h.Score < cfg.MinHandScore {
			continue
		}
		if t.handedness(h, pose) >= 0 {
			pools[Left] = append(pools[Left], h)
		} else {
			pools[Right] = append(pools[Right], h)
		}
	}

	for _, side := range Sides {
		hand := &t.hands[side]

		ref := wristOf(pose, side)
		maxDist := cfg.MaxHandWristDistanceAccurate
		if ref.Score < cfg.WristScoreThreshold {
			if hand.previousWrist != nil {
				ref = *hand.previousWrist
			}
			maxDist = cfg.MaxHandWristDistanceFuzzy
		}

		var best *detector.HandPose
		bestDist := math.Inf(1)
		for _, c := range pools[side] {
			dist := geom.Distance(c.Wrist(), ref.Point) / frameSize
			if dist > maxDist {
				continue
			}
			if dist < bestDist {
				best, bestDist = c, dist
			}
		}
		if best == nil {
			continue
		}

		assigned := *best
		hand.pose = &assigned
		hand.previousWrist = &ref
	}
}

func (t *Tracker) updateTracks() {
	now := t.clock.Now()
	threshold := t.config.Tracking.WristScoreThreshold

	for _, side := range Sides {
		hand := &t.hands[side]

		var wrist detector.Keypoint
		visible := false
		if t.person.pose != nil {
			wrist = wristOf(t.person.pose, side)
			visible = wrist.Score > threshold
		}

		switch {
		case hand.pose != nil:
			hand.center = geom.Centroid(hand.pose.Wrist(), hand.pose.IndexBase(), hand.pose.PinkyBase())
			hand.seen(now)
			if visible {
				hand.wristOffset = hand.center.Sub(wrist.Point)
			}
		case visible:
			hand.center = wrist.Point.Add(hand.wristOffset)
			hand.tracked(now)
		}
	}
}

func (t *Tracker) inferOrientation() {
	for _, side := range Sides {
		hand := &t.hands[side]
		if hand.pose == nil {
			continue
		}

		wrist := hand.pose.Wrist()
		a := geom.Lift(hand.pose.IndexBase().Sub(wrist))
		b := geom.Lift(hand.pose.PinkyBase().Sub(wrist))
		facing := a.Cross(b).Z < 0

		// The left hand's geometry is mirrored relative to the right's.
		if side == Left {
			facing = !facing
		}
		hand.palmFacingCamera = facing
	}
}
