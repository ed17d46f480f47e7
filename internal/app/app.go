// Package app runs the capture loop: camera frames go through the tracking
// session one at a time, optionally get recorded, and are announced to
// listeners such as the websocket hub.
package app

import (
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/capture"
	"github.com/ayusman/handmirror/internal/session"
	"github.com/ayusman/handmirror/internal/store"
)

// Config holds configuration options for the capture loop.
type Config struct {
	// FPS is the loop rate. Non-positive values use the camera's rate.
	FPS int `json:"fps" mapstructure:"fps"`
	// Record stores every processed frame when a store is attached.
	Record bool `json:"record" mapstructure:"record"`
	// RecordingName labels the recording; defaults to the start time.
	RecordingName string `json:"recording_name" mapstructure:"recording_name"`
}

// FrameListener is called after every successfully processed frame.
type FrameListener func(session.Snapshot)

// App is the main application that feeds camera frames to a session.
type App struct {
	config  Config
	camera  capture.Camera
	session *session.Session
	store   *store.Store
	closers []io.Closer
	logger  *zap.Logger
	clock   clock.Clock

	mu        sync.RWMutex
	listeners []FrameListener
	recording *store.Recording
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithStore attaches a recording store.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithClock sets the clock used for the loop ticker and frame timestamps.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithClosers registers resources, such as estimators, released on Stop.
func WithClosers(closers ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, closers...) }
}

// New creates a new App instance with the given configuration.
func New(config Config, camera capture.Camera, sess *session.Session, opts ...Option) *App {
	a := &App{
		config:  config,
		camera:  camera,
		session: sess,
		logger:  zap.NewNop(),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnFrame registers a listener for processed frames.
func (a *App) OnFrame(l FrameListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Session returns the tracking session.
func (a *App) Session() *session.Session {
	return a.session
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Recording returns the recording of the current or last run, or nil when
// nothing was recorded.
func (a *App) Recording() *store.Recording {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recording
}

// Done is closed when the loop exits, either from Stop or because the camera
// ran out of frames. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Start opens the camera and begins the capture loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return errors.Wrap(err, "open camera")
	}

	fps := a.config.FPS
	if fps > 0 {
		a.camera.SetFPS(fps)
	} else {
		fps = a.camera.FPS()
	}

	a.recording = nil
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(fps, a.stopCh, a.doneCh)

	a.logger.Info("capture loop started", zap.Int("fps", fps), zap.String("session", a.session.ID()))
	return nil
}

// Stop halts the capture loop, waits for the current frame to finish and
// releases the camera and every registered closer.
func (a *App) Stop() error {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return nil
	}
	close(stopCh)
	<-doneCh

	err := a.camera.Close()
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}

	if rec := a.Recording(); rec != nil {
		a.logger.Info("recording stopped", zap.String("recording", rec.ID))
	}

	a.logger.Info("capture loop stopped")
	return err
}
