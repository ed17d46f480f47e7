package tracker

import (
	"time"

	"github.com/golang/geo/r2"

	"github.com/ayusman/handmirror/internal/detector"
)

// Side identifies one of the person's hands.
type Side int

const (
	Left Side = iota
	Right
)

// Sides lists both sides in processing order.
var Sides = [...]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// wristOf returns the person's wrist keypoint on the given side.
func wristOf(pose *detector.BodyPose, side Side) detector.Keypoint {
	if side == Left {
		return pose.LeftWrist()
	}
	return pose.RightWrist()
}

// Person is the body currently being mirrored, if any.
type Person struct {
	pose *detector.BodyPose
}

// Pose returns the selected body pose, or nil when nobody was selected this
// frame.
func (p *Person) Pose() *detector.BodyPose {
	return p.pose
}

// Hand is the persistent state of one of the person's hands.
type Hand struct {
	pose             *detector.HandPose
	center           r2.Point
	wristOffset      r2.Point
	previousWrist    *detector.Keypoint
	palmFacingCamera bool
	lastSeen         time.Time
	lastTracked      time.Time
}

// Pose returns the hand pose assigned this frame, or nil.
func (h *Hand) Pose() *detector.HandPose { return h.pose }

// Center returns the hand's last known center. It keeps its previous value
// when the hand is neither detected nor extrapolated.
func (h *Hand) Center() r2.Point { return h.center }

// WristOffset returns the last recorded displacement of the hand center from
// the person's wrist.
func (h *Hand) WristOffset() r2.Point { return h.wristOffset }

// PreviousWrist returns the reference wrist used for the last successful
// assignment.
func (h *Hand) PreviousWrist() (detector.Keypoint, bool) {
	if h.previousWrist == nil {
		return detector.Keypoint{}, false
	}
	return *h.previousWrist, true
}

// PalmFacingCamera reports the last inferred palm orientation.
func (h *Hand) PalmFacingCamera() bool { return h.palmFacingCamera }

// LastSeen is the last time a hand pose was assigned.
func (h *Hand) LastSeen() time.Time { return h.lastSeen }

// LastTracked is the last time the center was updated, including by
// extrapolation.
func (h *Hand) LastTracked() time.Time { return h.lastTracked }

func (h *Hand) seen(now time.Time) {
	if now.After(h.lastSeen) {
		h.lastSeen = now
	}
	h.tracked(now)
}

func (h *Hand) tracked(now time.Time) {
	if now.After(h.lastTracked) {
		h.lastTracked = now
	}
}

// HandState is a detached copy of a Hand for readers outside the frame loop.
type HandState struct {
	Pose             *detector.HandPose `json:"pose,omitempty"`
	Center           r2.Point           `json:"center"`
	WristOffset      r2.Point           `json:"wristOffset"`
	PalmFacingCamera bool               `json:"palmFacingCamera"`
	LastSeen         time.Time          `json:"lastSeen"`
	LastTracked      time.Time          `json:"lastTracked"`
}

// State returns a copy of the hand that shares no memory with it.
func (h *Hand) State() HandState {
	s := HandState{
		Center:           h.center,
		WristOffset:      h.wristOffset,
		PalmFacingCamera: h.palmFacingCamera,
		LastSeen:         h.lastSeen,
		LastTracked:      h.lastTracked,
	}
	if h.pose != nil {
		p := *h.pose
		s.Pose = &p
	}
	return s
}
