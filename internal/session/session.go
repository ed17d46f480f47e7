// Package session hosts one tracking session: the estimators, the tracker
// state for one person's hands, and the session's gesture library.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/gesture"
	"github.com/ayusman/handmirror/internal/tracker"
)

var (
	// ErrNoHand is returned when a gesture is stored while no left hand is
	// tracked.
	ErrNoHand = errors.New("no left hand is tracked")
	// ErrEmptyName is returned for blank gesture names.
	ErrEmptyName = errors.New("gesture name is empty")
	// ErrNoFrame is returned by Update for a nil or empty frame.
	ErrNoFrame = errors.New("frame is empty")
)

// Config is the fixed configuration of a session.
type Config struct {
	Tracker tracker.Config `json:"tracker" mapstructure:"tracker"`
	Gesture gesture.Config `json:"gesture" mapstructure:"gesture"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Tracker: tracker.DefaultConfig(),
		Gesture: gesture.DefaultConfig(),
	}
}

type options struct {
	clock  clock.Clock
	logger *zap.Logger
}

// Option configures a Session.
type Option func(*options)

// WithClock sets the clock that timestamps hand tracks.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Session runs frames through the tracker one at a time and answers reads
// from other goroutines in between.
type Session struct {
	id     string
	poses  detector.PoseEstimator
	hands  detector.HandEstimator
	logger *zap.Logger

	// frameMu serializes Update so that no two frames are in flight.
	frameMu sync.Mutex

	mu      sync.RWMutex
	tracker *tracker.Tracker
	library *gesture.Library
	frames  uint64
	width   int
	height  int
}

// New creates a Session. Either estimator may be nil if only Apply is used.
func New(config Config, poses detector.PoseEstimator, hands detector.HandEstimator, opts ...Option) *Session {
	o := options{clock: clock.New(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New().String()
	logger := o.logger.With(zap.String("session", id))

	return &Session{
		id:      id,
		poses:   poses,
		hands:   hands,
		logger:  logger,
		tracker: tracker.New(config.Tracker, tracker.WithClock(o.clock), tracker.WithLogger(logger)),
		library: gesture.NewLibrary(config.Gesture),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Update estimates bodies and hands on frame and runs the result through the
// tracker. Any estimator error aborts the frame and leaves the tracked state
// untouched. The validated detections are returned so callers can record
// them.
func (s *Session) Update(ctx context.Context, frame *gocv.Mat) (detector.Detections, error) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	if err := ctx.Err(); err != nil {
		return detector.Detections{}, err
	}
	if frame == nil || frame.Empty() {
		return detector.Detections{}, ErrNoFrame
	}
	if s.poses == nil || s.hands == nil {
		return detector.Detections{}, errors.New("session has no estimators")
	}

	d := detector.Detections{Width: frame.Cols(), Height: frame.Rows()}

	poses, err := s.poses.EstimateBodyPoses(frame)
	if err != nil {
		return detector.Detections{}, errors.Wrap(err, "estimate body poses")
	}
	hands, err := s.hands.EstimateHands(frame)
	if err != nil {
		return detector.Detections{}, errors.Wrap(err, "estimate hands")
	}
	d.Poses, d.Hands = poses, hands

	s.apply(d)
	return d, nil
}

// Apply runs already estimated detections through the tracker, as when
// replaying a recording.
func (s *Session) Apply(d detector.Detections) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.apply(d)
}

func (s *Session) apply(d detector.Detections) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Process(d)
	s.frames++
	s.width, s.height = d.Width, d.Height
}

// StoreGesture records the left hand's current shape under name, replacing
// any gesture of the same name.
func (s *Session) StoreGesture(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pose := s.tracker.Hand(tracker.Left).Pose()
	if pose == nil {
		return ErrNoHand
	}
	s.library.Add(name, gesture.FromHandPose(pose))

	s.logger.Info("gesture stored", zap.String("name", name), zap.Int("library_size", s.library.Len()))
	return nil
}

// RemoveGesture deletes a stored gesture. The name is trimmed the same way
// StoreGesture trims it. It reports whether the gesture existed.
func (s *Session) RemoveGesture(name string) bool {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.library.Remove(name)
}

// Gestures returns the stored gesture names in the order they were added.
func (s *Session) Gestures() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library.Names()
}

// Match returns the stored gesture nearest to the given hand's current
// shape, or gesture.None when that hand is not detected or the library is
// empty.
func (s *Session) Match(side tracker.Side) gesture.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match(side)
}

func (s *Session) match(side tracker.Side) gesture.Match {
	pose := s.tracker.Hand(side).Pose()
	if pose == nil {
		return gesture.Match{Name: gesture.None}
	}
	sig := gesture.FromHandPose(pose)
	return s.library.Nearest(&sig)
}
