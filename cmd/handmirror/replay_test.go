package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.uber.org/zap/zaptest"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/session"
	"github.com/ayusman/handmirror/internal/store"
)

func recordedFrames(n int) []store.Frame {
	pose := detector.StandingPose(r2.Point{X: 320, Y: 200}, 100, 0.9)
	start := time.UnixMilli(1_700_000_000_000)
	frames := make([]store.Frame, n)
	for i := range frames {
		frames[i] = store.Frame{
			Sequence:   i,
			CapturedAt: start.Add(time.Duration(i) * 100 * time.Millisecond),
			Detections: detector.Detections{
				Width:  640,
				Height: 480,
				Poses:  []detector.BodyPose{pose},
				Hands:  []detector.HandPose{detector.OpenHand(pose.LeftWrist().Point, 20, true, 0.9)},
			},
		}
	}
	return frames
}

func TestParseLearn(t *testing.T) {
	got, err := parseLearn([]string{"open=0", "wave=3", "fist=3"})
	if err != nil {
		t.Fatalf("parseLearn() error = %v", err)
	}
	if len(got[0]) != 1 || got[0][0] != "open" {
		t.Errorf("sequence 0 = %v, want [open]", got[0])
	}
	if len(got[3]) != 2 {
		t.Errorf("sequence 3 = %v, want two names", got[3])
	}

	for _, bad := range []string{"open", "=1", "open=x", "open=-1"} {
		if _, err := parseLearn([]string{bad}); err == nil {
			t.Errorf("parseLearn(%q) expected error", bad)
		}
	}
}

func TestReplayer_Table(t *testing.T) {
	r := replayer{
		config: session.DefaultConfig(),
		learn:  map[int][]string{1: {"open"}},
		logger: zaptest.NewLogger(t),
	}

	var buf bytes.Buffer
	if err := r.run(&buf, recordedFrames(3)); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "SEQ") {
		t.Errorf("expected header, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "None") {
		t.Errorf("frame 0 should match nothing, got %q", lines[1])
	}
	for _, line := range lines[2:] {
		if !strings.Contains(line, "open") {
			t.Errorf("expected learned gesture in %q", line)
		}
	}
}

func TestReplayer_JSON(t *testing.T) {
	r := replayer{config: session.DefaultConfig(), json: true, logger: zaptest.NewLogger(t)}

	var buf bytes.Buffer
	frames := recordedFrames(2)
	if err := r.run(&buf, frames); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	dec := json.NewDecoder(&buf)
	for i := range frames {
		var snap session.Snapshot
		if err := dec.Decode(&snap); err != nil {
			t.Fatalf("decode snapshot %d: %v", i, err)
		}
		if snap.Frame != uint64(i+1) {
			t.Errorf("snapshot %d: frame = %d, want %d", i, snap.Frame, i+1)
		}
		if !snap.Left.LastSeen.Equal(frames[i].CapturedAt) {
			t.Errorf("snapshot %d: last seen = %v, want %v", i, snap.Left.LastSeen, frames[i].CapturedAt)
		}
	}
}
