package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/capture"
	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/store"
)

// runPipeline is the main loop that processes frames from the camera.
//
// Each tick handles exactly one frame to completion before the next is read:
// read a frame, estimate and track, record, then notify listeners. Frame
// errors are logged and the loop moves on; a camera that runs out of frames
// ends the loop.
func (a *App) runPipeline(fps int, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := a.clock.Ticker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := a.processFrame(ctx); err != nil {
				if errors.Is(err, capture.ErrEndOfStream) {
					a.logger.Info("frame source exhausted")
					return
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				a.logger.Warn("frame skipped", zap.Error(err))
			}
		}
	}
}

func (a *App) processFrame(ctx context.Context) error {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	d, err := a.session.Update(ctx, frame)
	if err != nil {
		return err
	}

	if a.config.Record && a.store != nil {
		if err := a.record(d); err != nil {
			a.logger.Warn("failed to record frame", zap.Error(err))
		}
	}

	snap := a.session.Snapshot()
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()
	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// record appends d to the current recording, creating the recording on the
// first frame so it carries the real frame size.
func (a *App) record(d detector.Detections) error {
	a.mu.Lock()
	rec := a.recording
	if rec == nil {
		name := a.config.RecordingName
		if name == "" {
			name = a.clock.Now().Format(time.RFC3339)
		}
		rec = &store.Recording{Name: name, Width: d.Width, Height: d.Height}
		if err := a.store.Recordings().Create(rec); err != nil {
			a.mu.Unlock()
			return errors.Wrap(err, "start recording")
		}
		a.recording = rec
		a.logger.Info("recording started", zap.String("recording", rec.ID), zap.String("name", name))
	}
	a.mu.Unlock()

	_, err := a.store.Frames().Append(rec.ID, a.clock.Now(), d)
	return err
}
