package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/ayusman/handmirror/internal/detector"
)

// Frame is one recorded frame of estimator output.
type Frame struct {
	ID          int64               `json:"id"`
	RecordingID string              `json:"recording_id"`
	Sequence    int                 `json:"sequence"`
	CapturedAt  time.Time           `json:"captured_at"`
	Detections  detector.Detections `json:"detections"`
}

// FrameRepository appends and reads recorded frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append stores d as the next frame of the recording and bumps the
// recording's frame count. Timestamps keep millisecond precision.
func (r *FrameRepository) Append(recordingID string, capturedAt time.Time, d detector.Detections) (*Frame, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "encode detections")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var sequence int
	err = tx.QueryRow(`SELECT frames FROM recordings WHERE id = ?`, recordingID).Scan(&sequence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ms := capturedAt.UnixMilli()
	result, err := tx.Exec(
		`INSERT INTO recording_frames (recording_id, sequence, captured_at_ms, data)
		 VALUES (?, ?, ?, ?)`,
		recordingID, sequence, ms, string(data),
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert frame")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE recordings SET frames = frames + 1 WHERE id = ?`, recordingID); err != nil {
		return nil, errors.Wrap(err, "update frame count")
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Frame{
		ID:          id,
		RecordingID: recordingID,
		Sequence:    sequence,
		CapturedAt:  time.UnixMilli(ms),
		Detections:  d,
	}, nil
}

// List returns every frame of a recording in capture order.
func (r *FrameRepository) List(recordingID string) ([]Frame, error) {
	rows, err := r.db.Query(
		`SELECT id, recording_id, sequence, captured_at_ms, data
		 FROM recording_frames
		 WHERE recording_id = ?
		 ORDER BY sequence`,
		recordingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var ms int64
		var data string
		if err := rows.Scan(&f.ID, &f.RecordingID, &f.Sequence, &ms, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &f.Detections); err != nil {
			return nil, errors.Wrapf(err, "decode frame %d", f.Sequence)
		}
		f.CapturedAt = time.UnixMilli(ms)
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}
