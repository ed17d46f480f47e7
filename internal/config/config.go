// Package config loads the tracker's YAML configuration file.
package config

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/handmirror/internal/app"
	"github.com/ayusman/handmirror/internal/capture"
	"github.com/ayusman/handmirror/internal/detector"
	"github.com/ayusman/handmirror/internal/session"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// StoreConfig locates the recording database.
type StoreConfig struct {
	// Path is the SQLite file. Empty uses ~/.handmirror/handmirror.db.
	Path string `mapstructure:"path"`
}

// Config is the full configuration for the handmirror command.
type Config struct {
	Session  session.Config  `mapstructure:"session"`
	Detector detector.Config `mapstructure:"detector"`
	Camera   capture.Config  `mapstructure:"camera"`
	App      app.Config      `mapstructure:"app"`
	Server   ServerConfig    `mapstructure:"server"`
	Store    StoreConfig     `mapstructure:"store"`
	Debug    bool            `mapstructure:"debug"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Session:  session.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Camera:   capture.DefaultConfig(),
		App:      app.Config{FPS: capture.DefaultConfig().FPS},
		Server:   ServerConfig{Addr: "localhost:8080"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Decode decodes YAML data onto cfg, keeping the values of keys the data
// does not set.
func Decode(data []byte, cfg *Config) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
