package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/app"
	"github.com/ayusman/handmirror/internal/capture"
	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/server"
	"github.com/ayusman/handmirror/internal/session"
)

// estimator is a closable source of both body and hand poses.
type estimator interface {
	detector.PoseEstimator
	detector.HandEstimator
	io.Closer
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "track from the camera and serve state over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen `ADDRESS`"},
			&cli.StringFlag{Name: "static", Usage: "serve static files from `DIR`"},
			&cli.IntFlag{Name: "device", Usage: "camera device index"},
			&cli.IntFlag{Name: "fps", Usage: "frames per second"},
			&cli.BoolFlag{Name: "record", Usage: "record estimator output for replay"},
			&cli.StringFlag{Name: "name", Usage: "recording `NAME`"},
			&cli.BoolFlag{Name: "mock", Usage: "use the mock estimator instead of MediaPipe"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Server.Addr = c.String("addr")
	}
	if c.IsSet("static") {
		cfg.Server.StaticDir = c.String("static")
	}
	if c.IsSet("device") {
		cfg.Camera.Device = c.Int("device")
	}
	if c.IsSet("fps") {
		cfg.App.FPS = c.Int("fps")
	}
	if c.Bool("record") {
		cfg.App.Record = true
	}
	if c.IsSet("name") {
		cfg.App.RecordingName = c.String("name")
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	est := newEstimator(cfg.Detector, c.Bool("mock"), logger)

	sess := session.New(cfg.Session, est, est, session.WithLogger(logger.Named("session")))
	a := app.New(cfg.App, capture.NewCamera(cfg.Camera), sess,
		app.WithStore(st),
		app.WithLogger(logger.Named("app")),
		app.WithClosers(est),
	)

	srv := server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		Session:   sess,
		Store:     st,
		Logger:    logger.Named("server"),
	})
	a.OnFrame(srv.Hub().Broadcast)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		return multierr.Append(err, est.Close())
	}
	logger.Info("tracking started",
		zap.String("session", sess.ID()),
		zap.String("addr", cfg.Server.Addr),
		zap.String("static_dir", cfg.Server.StaticDir),
		zap.Bool("record", cfg.App.Record),
	)

	serveErr := srv.ListenAndServe(ctx, cfg.Server.Addr)
	return multierr.Append(serveErr, a.Stop())
}

func newEstimator(config detector.Config, mock bool, logger *zap.Logger) estimator {
	if mock {
		logger.Warn("using mock estimator; no poses will be detected")
		return detector.NewMockDetector()
	}
	est, err := detector.NewMediaPipeEstimator(config, logger.Named("estimator"))
	if err != nil {
		logger.Warn("falling back to mock estimator", zap.Error(err))
		return detector.NewMockDetector()
	}
	return est
}
