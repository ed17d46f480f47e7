package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/session"
	"github.com/ayusman/handmirror/internal/store"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "feed a recording through a fresh tracking session",
		ArgsUsage: "<recording-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "learn",
				Usage: "store the left hand as gesture `NAME=SEQUENCE` after that frame",
			},
			&cli.BoolFlag{Name: "json", Usage: "print one JSON snapshot per frame"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return cli.Exit("replay requires a recording id", 1)
			}
			learn, err := parseLearn(c.StringSlice("learn"))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
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
			defer st.Close()

			if _, err := st.Recordings().GetByID(id); err != nil {
				return errors.Wrapf(err, "recording %s", id)
			}
			frames, err := st.Frames().List(id)
			if err != nil {
				return err
			}

			r := replayer{config: cfg.Session, learn: learn, json: c.Bool("json"), logger: logger}
			return r.run(c.App.Writer, frames)
		},
	}
}

// parseLearn turns NAME=SEQUENCE pairs into names keyed by frame sequence.
func parseLearn(values []string) (map[int][]string, error) {
	learn := make(map[int][]string)
	for _, v := range values {
		name, seq, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, errors.Errorf("invalid --learn value %q, want NAME=SEQUENCE", v)
		}
		n, err := strconv.Atoi(seq)
		if err != nil || n < 0 {
			return nil, errors.Errorf("invalid frame sequence in --learn value %q", v)
		}
		learn[n] = append(learn[n], name)
	}
	return learn, nil
}

type replayer struct {
	config session.Config
	learn  map[int][]string
	json   bool
	logger *zap.Logger
}

// run applies frames to a new session whose clock follows the recorded
// capture times and writes the per-frame hand state to w.
func (r replayer) run(w io.Writer, frames []store.Frame) error {
	clk := clock.NewMock()
	sess := session.New(r.config, nil, nil, session.WithClock(clk), session.WithLogger(r.logger))

	var tw *tabwriter.Writer
	var enc *json.Encoder
	if r.json {
		enc = json.NewEncoder(w)
	} else {
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tPERSON\tLEFT\tRIGHT")
	}

	for _, f := range frames {
		clk.Set(f.CapturedAt)
		sess.Apply(f.Detections)

		for _, name := range r.learn[f.Sequence] {
			if err := sess.StoreGesture(name); err != nil {
				r.logger.Warn("gesture not stored", zap.String("name", name), zap.Int("sequence", f.Sequence), zap.Error(err))
			}
		}

		snap := sess.Snapshot()
		if enc != nil {
			if err := enc.Encode(snap); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(tw, "%d\t%t\t%s\t%s\n", f.Sequence, snap.Person != nil, describeHand(snap.Left), describeHand(snap.Right))
	}

	if tw != nil {
		return tw.Flush()
	}
	return nil
}

func describeHand(h session.HandSnapshot) string {
	if h.Pose == nil {
		return "-"
	}
	facing := "back"
	if h.PalmFacingCamera {
		facing = "palm"
	}
	return fmt.Sprintf("(%.0f,%.0f) %s %s %.3f", h.Center.X, h.Center.Y, facing, h.Gesture.Name, h.Gesture.Distance)
}
