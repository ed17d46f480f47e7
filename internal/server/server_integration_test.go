package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/gorilla/websocket"

	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/session"
	"github.com/ayusman/handmirror/internal/store"
)

func trackedFrame() detector.Detections {
	pose := detector.StandingPose(r2.Point{X: 320, Y: 200}, 100, 0.9)
	return detector.Detections{
		Width:  640,
		Height: 480,
		Poses:  []detector.BodyPose{pose},
		Hands:  []detector.HandPose{detector.OpenHand(pose.LeftWrist().Point, 20, true, 0.9)},
	}
}

func TestAPI_GestureWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	sess := newSession()
	ts := httptest.NewServer(New(Config{Session: sess, Store: s}))
	defer ts.Close()
	client := ts.Client()

	post := func(body string) int {
		t.Helper()
		resp, err := client.Post(ts.URL+"/api/gestures", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST /api/gestures error = %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	// 1. Nothing tracked yet
	if code := post(`{"name": "open"}`); code != http.StatusConflict {
		t.Fatalf("POST before tracking status = %d, want %d", code, http.StatusConflict)
	}

	// 2. Track a frame and store the left hand
	sess.Apply(trackedFrame())
	if code := post(`{"name": "open"}`); code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", code, http.StatusCreated)
	}

	// 3. State reports the match
	resp, err := client.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	var snap session.Snapshot
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if snap.Left.Gesture.Name != "open" {
		t.Errorf("left gesture = %s, want open", snap.Left.Gesture.Name)
	}
	if len(snap.Gestures) != 1 {
		t.Errorf("gestures = %v, want [open]", snap.Gestures)
	}

	// 4. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/gestures/open", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if len(sess.Gestures()) != 0 {
		t.Errorf("gestures after delete = %v", sess.Gestures())
	}

	// 5. Recordings are reachable when a store is attached
	resp, err = client.Get(ts.URL + "/api/recordings")
	if err != nil {
		t.Fatalf("GET /api/recordings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/recordings status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func readSnapshot(t *testing.T, conn *websocket.Conn) session.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap session.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return snap
}

func TestStateHub_Broadcast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	sess := newSession()
	srv := New(Config{Session: sess})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/state/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	initial := readSnapshot(t, conn)
	if initial.SessionID != sess.ID() || initial.Frame != 0 {
		t.Errorf("unexpected initial snapshot: session=%s frame=%d", initial.SessionID, initial.Frame)
	}

	// The client is registered after the initial write; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sess.Apply(trackedFrame())
	srv.Hub().Broadcast(sess.Snapshot())

	got := readSnapshot(t, conn)
	if got.Frame != 1 {
		t.Errorf("frame = %d, want 1", got.Frame)
	}
	if got.Left.Pose == nil {
		t.Error("expected left hand in broadcast")
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for srv.Hub().Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialState(t *testing.T, hub *StateHub, baseURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/state/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	readSnapshot(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the connection to be closed")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("connection stayed open: %v", err)
	}
}

func TestStateHub_Close(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	srv := New(Config{Session: newSession()})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialState(t, srv.Hub(), ts.URL)
	defer conn.Close()

	srv.Hub().Close()
	expectClosed(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never removed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Clients connecting after Close are turned away.
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/state/ws"
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer late.Close()
	readSnapshot(t, late)
	expectClosed(t, late)
}

func TestServer_ServeClosesWebSocketsOnShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	srv := New(Config{Session: newSession()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	conn := dialState(t, srv.Hub(), "http://"+ln.Addr().String())
	defer conn.Close()

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	expectClosed(t, conn)
}
