// Package config loads the snake's settings: defaults, then an optional YAML
// file, then SNEK_* environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brensch/snekmax/executor/heuristic"
	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/logging"
)

var (
	ErrInvalidDepth   = errors.New("search depth must be at least 1")
	ErrInvalidWeights = errors.New("weights must be non-negative with a positive sum")
)

type Config struct {
	Listen    string `yaml:"listen"`
	Author    string `yaml:"author"`
	Color     string `yaml:"color"`
	Head      string `yaml:"head"`
	Tail      string `yaml:"tail"`
	Version   string `yaml:"version"`
	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	Search  Search  `yaml:"search"`
	Weights Weights `yaml:"weights"`
	Record  Record  `yaml:"record"`
	Tracing Tracing `yaml:"tracing"`
}

type Search struct {
	Depth     int           `yaml:"depth"`
	Policy    string        `yaml:"policy"`
	LowHealth int32         `yaml:"low_health"`
	Budget    time.Duration `yaml:"budget"`
}

type Weights struct {
	Territory float64 `yaml:"territory"`
	Food      float64 `yaml:"food"`
	Threat    float64 `yaml:"threat"`
	Kill      float64 `yaml:"kill"`
}

// Record configures the decision archive. An empty Dir disables it.
type Record struct {
	Dir       string `yaml:"dir"`
	FlushRows int    `yaml:"flush_rows"`
}

// Tracing configures OTLP export. An empty Endpoint disables it.
type Tracing struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

func Default() Config {
	w := heuristic.DefaultWeights
	return Config{
		Listen:    ":8080",
		Author:    "snekmax",
		Color:     "#2f9e44",
		Head:      "default",
		Tail:      "default",
		Version:   "1.0.0",
		LogFormat: logging.FormatText,
		LogLevel:  "info",
		Search: Search{
			Depth:     minimax.DefaultDepth,
			Policy:    minimax.MaxN.String(),
			LowHealth: heuristic.DefaultLowHealth,
			Budget:    400 * time.Millisecond,
		},
		Weights: Weights{Territory: w.Territory, Food: w.Food, Threat: w.Threat, Kill: w.Kill},
		Record:  Record{FlushRows: 1000},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected so typos do not silently fall back.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SNEK_* variables looked up through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("SNEK_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("SNEK_DEPTH"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SNEK_DEPTH: %w", err)
		}
		c.Search.Depth = d
	}
	if v := getenv("SNEK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("SNEK_RECORD_DIR"); v != "" {
		c.Record.Dir = v
	}
	if v := getenv("SNEK_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	return nil
}

// Validate checks the values the engine cannot work around.
func (c Config) Validate() error {
	if c.Search.Depth < 1 {
		return fmt.Errorf("depth %d: %w", c.Search.Depth, ErrInvalidDepth)
	}
	w := c.Weights
	if w.Territory < 0 || w.Food < 0 || w.Threat < 0 || w.Kill < 0 || w.Territory+w.Food+w.Threat+w.Kill <= 0 {
		return fmt.Errorf("%+v: %w", w, ErrInvalidWeights)
	}
	if _, err := minimax.ParsePolicy(c.Search.Policy); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Search.Budget < 0 {
		return fmt.Errorf("negative search budget %s", c.Search.Budget)
	}
	return nil
}

// Minimax converts the search section into engine settings. Call Validate first.
func (c Config) Minimax() minimax.Config {
	policy, _ := minimax.ParsePolicy(c.Search.Policy)
	return minimax.Config{
		Depth:  c.Search.Depth,
		Policy: policy,
		Weights: heuristic.Weights{
			Territory: c.Weights.Territory,
			Food:      c.Weights.Food,
			Threat:    c.Weights.Threat,
			Kill:      c.Weights.Kill,
		},
		LowHealth: c.Search.LowHealth,
		Budget:    c.Search.Budget,
	}
}

// Parse builds the configuration for a binary: -config names the YAML file
// (falling back to SNEK_CONFIG), env overrides apply next, and any flag set
// explicitly on the command line wins.
func Parse(name string, args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", getenv("SNEK_CONFIG"), "YAML config file")
	listen := fs.String("listen", "", "HTTP listen address")
	depth := fs.Int("depth", 0, "Search depth in plies")
	policy := fs.String("policy", "", "Opponent model: maxn or paranoid")
	budget := fs.Duration("budget", 0, "Soft per-move time budget")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text, json or pretty")
	recordDir := fs.String("record-dir", "", "Directory for the decision archive (empty disables)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(*path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "depth":
			cfg.Search.Depth = *depth
		case "policy":
			cfg.Search.Policy = *policy
		case "budget":
			cfg.Search.Budget = *budget
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "record-dir":
			cfg.Record.Dir = *recordDir
		}
	})
	return cfg, cfg.Validate()
}
