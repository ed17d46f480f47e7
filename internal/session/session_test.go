package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gocv.io/x/gocv"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/gesture"
	"github.com/ayusman/handmirror/internal/tracker"
)

var personCenter = r2.Point{X: 320, Y: 200}

func person() detector.BodyPose {
	return detector.StandingPose(personCenter, 100, 0.9)
}

func detections(hands ...detector.HandPose) detector.Detections {
	return detector.Detections{
		Width:  640,
		Height: 480,
		Poses:  []detector.BodyPose{person()},
		Hands:  hands,
	}
}

func leftOpen() detector.HandPose {
	p := person()
	return detector.OpenHand(p.LeftWrist().Point, 20, true, 0.9)
}

func leftFist() detector.HandPose {
	p := person()
	return detector.FistHand(p.LeftWrist().Point, 20, true, 0.9)
}

func rightOpen() detector.HandPose {
	p := person()
	return detector.OpenHand(p.RightWrist().Point, 20, false, 0.9)
}

func newTestSession(t *testing.T) (*Session, *detector.MockDetector, *clock.Mock) {
	t.Helper()
	mock := detector.NewMockDetector()
	clk := clock.NewMock()
	s := New(DefaultConfig(), mock, mock, WithClock(clk), WithLogger(zaptest.NewLogger(t)))
	return s, mock, clk
}

func newFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return &mat
}

func TestSession_Update(t *testing.T) {
	t.Run("runs estimators then tracker", func(t *testing.T) {
		s, mock, _ := newTestSession(t)
		mock.SetPoses([]detector.BodyPose{person()})
		mock.SetHands([]detector.HandPose{leftOpen()})

		d, err := s.Update(context.Background(), newFrame(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Width != 640 || d.Height != 480 {
			t.Errorf("expected 640x480 detections, got %dx%d", d.Width, d.Height)
		}
		if len(d.Hands) != 1 || len(d.Poses) != 1 {
			t.Errorf("expected 1 pose and 1 hand, got %d and %d", len(d.Poses), len(d.Hands))
		}

		snap := s.Snapshot()
		if snap.Frame != 1 {
			t.Errorf("expected frame 1, got %d", snap.Frame)
		}
		if snap.Left.Pose == nil {
			t.Error("expected left hand tracked")
		}
	})

	t.Run("estimator error keeps previous state", func(t *testing.T) {
		s, mock, _ := newTestSession(t)
		mock.SetPoses([]detector.BodyPose{person()})
		mock.SetHands([]detector.HandPose{leftOpen()})
		if _, err := s.Update(context.Background(), newFrame(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		before := s.Snapshot()

		mock.SetPoses(nil)
		mock.SetHandError(detector.ErrMalformed)
		_, err := s.Update(context.Background(), newFrame(t))
		if !errors.Is(err, detector.ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}

		if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
			t.Errorf("state changed after failed frame (-before +after):\n%s", diff)
		}
	})

	t.Run("cancelled context skips the frame", func(t *testing.T) {
		s, mock, _ := newTestSession(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := s.Update(ctx, newFrame(t)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if mock.Calls() != 0 {
			t.Errorf("expected no estimator calls, got %d", mock.Calls())
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		s, _, _ := newTestSession(t)
		if _, err := s.Update(context.Background(), nil); !errors.Is(err, ErrNoFrame) {
			t.Errorf("expected ErrNoFrame, got %v", err)
		}

		empty := gocv.NewMat()
		defer empty.Close()
		if _, err := s.Update(context.Background(), &empty); !errors.Is(err, ErrNoFrame) {
			t.Errorf("expected ErrNoFrame, got %v", err)
		}
	})
}

func TestSession_StoreGesture(t *testing.T) {
	t.Run("stores the left hand", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		s := New(DefaultConfig(), nil, nil, WithLogger(zap.New(core)))
		s.Apply(detections(leftOpen()))

		if err := s.StoreGesture("  open  "); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"open"}, s.Gestures()); diff != "" {
			t.Errorf("unexpected gestures (-want +got):\n%s", diff)
		}
		if logs.FilterMessage("gesture stored").Len() != 1 {
			t.Error("expected gesture stored log")
		}
	})

	t.Run("requires a name", func(t *testing.T) {
		s := New(DefaultConfig(), nil, nil)
		s.Apply(detections(leftOpen()))
		if err := s.StoreGesture(" "); !errors.Is(err, ErrEmptyName) {
			t.Errorf("expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("requires a left hand", func(t *testing.T) {
		s := New(DefaultConfig(), nil, nil)
		s.Apply(detections(rightOpen()))
		if err := s.StoreGesture("open"); !errors.Is(err, ErrNoHand) {
			t.Errorf("expected ErrNoHand, got %v", err)
		}
		if len(s.Gestures()) != 0 {
			t.Error("expected no gestures stored")
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := New(DefaultConfig(), nil, nil)
		s.Apply(detections(leftOpen()))
		_ = s.StoreGesture("open")

		if !s.RemoveGesture("open") {
			t.Error("expected gesture to be removed")
		}
		if s.RemoveGesture("open") {
			t.Error("expected second remove to fail")
		}
	})

	t.Run("remove trims like store", func(t *testing.T) {
		s := New(DefaultConfig(), nil, nil)
		s.Apply(detections(leftOpen()))
		_ = s.StoreGesture("ok ")

		if !s.RemoveGesture(" ok ") {
			t.Error("expected padded name to remove the stored gesture")
		}
		if len(s.Gestures()) != 0 {
			t.Errorf("expected no gestures, got %v", s.Gestures())
		}
	})
}

func TestSession_Match(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)

	if m := s.Match(tracker.Left); m.Name != gesture.None {
		t.Errorf("expected %q without a hand, got %q", gesture.None, m.Name)
	}

	s.Apply(detections(leftOpen()))
	if m := s.Match(tracker.Left); m.Name != gesture.None {
		t.Errorf("expected %q with an empty library, got %q", gesture.None, m.Name)
	}
	_ = s.StoreGesture("open")

	s.Apply(detections(leftFist()))
	_ = s.StoreGesture("fist")

	s.Apply(detections(leftOpen(), rightOpen()))
	if m := s.Match(tracker.Left); m.Name != "open" {
		t.Errorf("expected left to match open, got %q", m.Name)
	}
	if m := s.Match(tracker.Right); m.Name != "open" {
		t.Errorf("expected right to match open, got %q", m.Name)
	}

	s.Apply(detections(leftFist()))
	if m := s.Match(tracker.Left); m.Name != "fist" {
		t.Errorf("expected left to match fist, got %q", m.Name)
	}
	if m := s.Match(tracker.Right); m.Name != gesture.None {
		t.Errorf("expected no right hand match, got %q", m.Name)
	}
}

func TestSession_Snapshot(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(time.Minute)
	s := New(DefaultConfig(), nil, nil, WithClock(clk))
	s.Apply(detections(leftOpen()))
	_ = s.StoreGesture("open")

	snap := s.Snapshot()
	if snap.SessionID != s.ID() || snap.SessionID == "" {
		t.Errorf("unexpected session id %q", snap.SessionID)
	}
	if snap.Person == nil {
		t.Fatal("expected a person")
	}
	if snap.Left.Side != "left" || snap.Right.Side != "right" {
		t.Errorf("unexpected sides %q/%q", snap.Left.Side, snap.Right.Side)
	}
	if snap.Left.Gesture.Name != "open" {
		t.Errorf("expected left gesture open, got %q", snap.Left.Gesture.Name)
	}
	if !snap.Left.LastSeen.Equal(clk.Now()) {
		t.Errorf("expected last seen %v, got %v", clk.Now(), snap.Left.LastSeen)
	}

	snap.Person.Score = 0
	snap.Left.Pose.Score = 0
	again := s.Snapshot()
	if again.Person.Score != 0.9 || again.Left.Pose.Score != 0.9 {
		t.Error("mutating a snapshot changed the session")
	}

	if _, err := json.Marshal(again); err != nil {
		t.Errorf("snapshot should encode as JSON: %v", err)
	}
}

func TestSession_ConcurrentReads(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Apply(detections(leftOpen()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.Snapshot()
			_ = s.Match(tracker.Left)
		}
	}()
	wg.Wait()

	if got := s.Snapshot().Frame; got != 100 {
		t.Errorf("expected 100 frames, got %d", got)
	}
}
