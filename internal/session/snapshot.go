package session

import (
	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/gesture"
	"github.com/ayusman/handmirror/internal/tracker"
)

// HandSnapshot is one hand's state along with its nearest gesture.
type HandSnapshot struct {
	tracker.HandState
	Side    string        `json:"side"`
	Gesture gesture.Match `json:"gesture"`
}

// Snapshot is a read-only copy of a session's state after a frame.
type Snapshot struct {
	SessionID string             `json:"sessionId"`
	Frame     uint64             `json:"frame"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Person    *detector.BodyPose `json:"person,omitempty"`
	Left      HandSnapshot       `json:"left"`
	Right     HandSnapshot       `json:"right"`
	Gestures  []string           `json:"gestures"`
}

// Snapshot copies the current state. The result shares no memory with the
// session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID: s.id,
		Frame:     s.frames,
		Width:     s.width,
		Height:    s.height,
		Left:      s.handSnapshot(tracker.Left),
		Right:     s.handSnapshot(tracker.Right),
		Gestures:  s.library.Names(),
	}
	if pose := s.tracker.Person().Pose(); pose != nil {
		p := *pose
		snap.Person = &p
	}
	return snap
}

func (s *Session) handSnapshot(side tracker.Side) HandSnapshot {
	return HandSnapshot{
		HandState: s.tracker.Hand(side).State(),
		Side:      side.String(),
		Gesture:   s.match(side),
	}
}
