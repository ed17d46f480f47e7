// Command handmirror tracks a dancer's hands from a camera, serves the
// tracking state over HTTP and replays recorded sessions.
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/config"
	"github.com/ayusman/handmirror/internal/store"
)

const (
	flagConfig = "config"
	flagDB     = "db"
	flagDebug  = "debug"
)

func main() {
	app := &cli.App{
		Name:  "handmirror",
		Usage: "track and mirror a performer's hands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagDB,
				Usage: "recording database `PATH` (default ~/.handmirror/handmirror.db)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			replayCommand(),
			recordingsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return cfg, err
	}
	if c.IsSet(flagDB) {
		cfg.Store.Path = c.String(flagDB)
	}
	if c.Bool(flagDebug) {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// dataDir returns ~/.handmirror, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get home directory")
	}
	dir := filepath.Join(homeDir, ".handmirror")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create data directory")
	}
	return dir, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "handmirror.db")
	}
	return store.New(path)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handmirror/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handmirror", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
