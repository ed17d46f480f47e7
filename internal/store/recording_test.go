package store

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/handmirror/internal/detector"
)

func sampleDetections() detector.Detections {
	pose := detector.StandingPose(r2.Point{X: 320, Y: 200}, 100, 0.9)
	return detector.Detections{
		Width:  640,
		Height: 480,
		Poses:  []detector.BodyPose{pose},
		Hands: []detector.HandPose{
			detector.OpenHand(pose.LeftWrist().Point, 20, true, 0.87),
			detector.FistHand(pose.RightWrist().Point, 20, false, 0.6),
		},
	}
}

func TestRecordingRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{Name: "morning", Width: 640, Height: 480}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}

	if rec.ID == "" {
		t.Error("ID should be generated")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}

	got, err := repo.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("failed to get recording: %v", err)
	}
	if got.Name != "morning" || got.Width != 640 || got.Height != 480 || got.Frames != 0 {
		t.Errorf("unexpected recording: %+v", got)
	}
}

func TestRecordingRepository_CreateWithID(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	rec := &Recording{ID: "fixed-id", Name: "fixed"}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}
	if rec.ID != "fixed-id" {
		t.Errorf("expected ID to be kept, got %q", rec.ID)
	}

	if err := repo.Create(&Recording{ID: "fixed-id", Name: "duplicate"}); err == nil {
		t.Error("expected error for duplicate ID")
	}
}

func TestRecordingRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Recordings().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordingRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Recordings()

	recs, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list recordings: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no recordings, got %d", len(recs))
	}

	for _, name := range []string{"first", "second"} {
		if err := repo.Create(&Recording{Name: name}); err != nil {
			t.Fatalf("failed to create recording: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	recs, err = repo.List()
	if err != nil {
		t.Fatalf("failed to list recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(recs))
	}
	if recs[0].Name != "second" {
		t.Errorf("expected newest first, got %q", recs[0].Name)
	}
}

func TestRecordingRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	rec := &Recording{Name: "doomed"}
	if err := s.Recordings().Create(rec); err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}
	if _, err := s.Frames().Append(rec.ID, time.Now(), sampleDetections()); err != nil {
		t.Fatalf("failed to append frame: %v", err)
	}

	if err := s.Recordings().Delete(rec.ID); err != nil {
		t.Fatalf("failed to delete recording: %v", err)
	}

	if _, err := s.Recordings().GetByID(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Frames are removed with their recording.
	var count int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM recording_frames`).Scan(&count); err != nil {
		t.Fatalf("failed to count frames: %v", err)
	}
	if count != 0 {
		t.Errorf("expected frames to cascade, got %d", count)
	}

	if err := s.Recordings().Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestFrameRepository_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	rec := &Recording{Name: "replay", Width: 640, Height: 480}
	if err := s.Recordings().Create(rec); err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}

	start := time.UnixMilli(1_700_000_000_000)
	d := sampleDetections()
	for i := 0; i < 3; i++ {
		f, err := s.Frames().Append(rec.ID, start.Add(time.Duration(i)*33*time.Millisecond), d)
		if err != nil {
			t.Fatalf("failed to append frame %d: %v", i, err)
		}
		if f.Sequence != i {
			t.Errorf("expected sequence %d, got %d", i, f.Sequence)
		}
	}

	got, err := s.Recordings().GetByID(rec.ID)
	if err != nil {
		t.Fatalf("failed to get recording: %v", err)
	}
	if got.Frames != 3 {
		t.Errorf("expected 3 frames counted, got %d", got.Frames)
	}

	frames, err := s.Frames().List(rec.ID)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if !frames[2].CapturedAt.Equal(start.Add(66 * time.Millisecond)) {
		t.Errorf("unexpected capture time %v", frames[2].CapturedAt)
	}
	if diff := cmp.Diff(d, frames[1].Detections); diff != "" {
		t.Errorf("detections changed in storage (-want +got):\n%s", diff)
	}
}

func TestFrameRepository_AppendUnknownRecording(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Frames().Append("missing", time.Now(), detector.Detections{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
