package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the vamp configuration file (~/.config/vamp/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Sampling defaults
	Temperature    *float64 `yaml:"temperature"`
	Filter         string   `yaml:"filter"`
	TopK           *int64   `yaml:"top_k"`
	TopP           *float64 `yaml:"top_p"`
	TypicalMass    *float64 `yaml:"typical_mass"`
	Iterations     *int64   `yaml:"iterations"`
	FineIterations *int64   `yaml:"fine_iterations"`
	Curve          string   `yaml:"curve"`
	Seed           *int64   `yaml:"seed"`

	// Pipeline shape
	Layers       *int64 `yaml:"layers"`
	CoarseLayers *int64 `yaml:"coarse_layers"`
	Vocab        *int64 `yaml:"vocab"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	RatePerSecond *float64 `yaml:"rate_per_second"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vamp", "config.yaml")
}

// applyGenerateConfig applies config file defaults to generate command
// variables when the corresponding CLI flag was not explicitly set.
func applyGenerateConfig(c *cli.Command, cfg Config,
	temp *float64, filter *string, topK *int64, topP *float64, typicalMass *float64,
	iterations, fineIterations *int64, curve *string, seed *int64,
) {
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		*temp = *cfg.Temperature
	}
	if cfg.Filter != "" && !c.IsSet("filter") {
		*filter = cfg.Filter
	}
	if cfg.TopK != nil && !c.IsSet("top-k") && !c.IsSet("top_k") && !c.IsSet("topk") {
		*topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") && !c.IsSet("top_p") && !c.IsSet("topp") {
		*topP = *cfg.TopP
	}
	if cfg.TypicalMass != nil && !c.IsSet("typical-mass") && !c.IsSet("typical_mass") {
		*typicalMass = *cfg.TypicalMass
	}
	if cfg.Iterations != nil && !c.IsSet("iterations") {
		*iterations = *cfg.Iterations
	}
	if cfg.FineIterations != nil && !c.IsSet("fine-iterations") && !c.IsSet("fine_iterations") {
		*fineIterations = *cfg.FineIterations
	}
	if cfg.Curve != "" && !c.IsSet("curve") {
		*curve = cfg.Curve
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	applyShapeConfig(c, cfg)
}

func applyShapeConfig(c *cli.Command, cfg Config) {
	if cfg.Layers != nil && !c.IsSet("layers") {
		layers = *cfg.Layers
	}
	if cfg.CoarseLayers != nil && !c.IsSet("coarse-layers") && !c.IsSet("coarse_layers") {
		coarseLayers = *cfg.CoarseLayers
	}
	if cfg.Vocab != nil && !c.IsSet("vocab") {
		vocab = *cfg.Vocab
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, ratePerSecond *float64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RatePerSecond != nil && !c.IsSet("rate") {
		*ratePerSecond = *cfg.RatePerSecond
	}
	applyShapeConfig(c, cfg)
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
