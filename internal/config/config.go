package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pinnlab/internal/dataset"
	"github.com/san-kum/pinnlab/internal/decay"
	"github.com/san-kum/pinnlab/internal/render"
	"github.com/san-kum/pinnlab/internal/train"
)

const (
	DefaultIntegrator = "rk4"
	DefaultDataDir    = "./data"
	DefaultPreset     = "default"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Preset     string         `yaml:"preset"`
	Integrator string         `yaml:"integrator"`
	DataDir    string         `yaml:"data_dir"`
	Law        decay.Law      `yaml:"law"`
	Data       dataset.Config `yaml:"data"`
	Train      train.Config   `yaml:"train"`
	Render     RenderConfig   `yaml:"render"`
}

type RenderConfig struct {
	Frames int     `yaml:"frames"`
	FPS    int     `yaml:"fps"`
	Output string  `yaml:"output"`
	Width  float64 `yaml:"width_in"`
	Height float64 `yaml:"height_in"`
	DPI    int     `yaml:"dpi"`
	Still  string  `yaml:"still,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Preset:     DefaultPreset,
		Integrator: DefaultIntegrator,
		DataDir:    DefaultDataDir,
		Law:        decay.Default(),
		Data:       dataset.DefaultConfig(),
		Train:      train.DefaultConfig(),
		Render: RenderConfig{
			Frames: render.DefaultFrames,
			FPS:    render.DefaultFPS,
			Output: render.DefaultOutput,
			Width:  12,
			Height: 5.25,
			DPI:    72,
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Env lists the variables that may override a loaded config. Unset
// variables leave the field nil.
type Env struct {
	Seed          *int64   `env:"PINNLAB_SEED"`
	Iterations    *int     `env:"PINNLAB_ITERATIONS"`
	LR            *float64 `env:"PINNLAB_LR"`
	PhysicsWeight *float64 `env:"PINNLAB_PHYSICS_WEIGHT"`
	Output        *string  `env:"PINNLAB_OUTPUT"`
	DataDir       *string  `env:"PINNLAB_DATA_DIR"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply copies every set variable into cfg.
func (e Env) Apply(cfg *Config) {
	if e.Seed != nil {
		cfg.Data.Seed = *e.Seed
	}
	if e.Iterations != nil {
		cfg.Train.Iterations = *e.Iterations
	}
	if e.LR != nil {
		cfg.Train.LR = *e.LR
	}
	if e.PhysicsWeight != nil {
		cfg.Train.PhysicsWeight = *e.PhysicsWeight
	}
	if e.Output != nil {
		cfg.Render.Output = *e.Output
	}
	if e.DataDir != nil {
		cfg.DataDir = *e.DataDir
	}
}

// Resolve builds the effective config: the named preset (or defaults),
// then the YAML file when path is set, then environment overrides.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		p := GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidConfig, preset)
		}
		cfg = p
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	e, err := ParseEnv()
	if err != nil {
		return nil, err
	}
	e.Apply(cfg)
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if err := c.Law.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Train.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Render.Frames < 1 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidConfig, c.Render.Frames)
	}
	if c.Render.FPS < 1 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidConfig, c.Render.FPS)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.DPI < 1 {
		return fmt.Errorf("%w: bad canvas %gx%gin at %d dpi", ErrInvalidConfig, c.Render.Width, c.Render.Height, c.Render.DPI)
	}
	if c.Render.Output == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidConfig)
	}
	return nil
}

// Animation returns the renderer settings for this config.
func (c *Config) Animation() render.Animation {
	a := render.DefaultAnimation()
	a.Frames = c.Render.Frames
	a.FPS = c.Render.FPS
	a.Width = vg.Length(c.Render.Width) * vg.Inch
	a.Height = vg.Length(c.Render.Height) * vg.Inch
	a.DPI = c.Render.DPI
	return a
}
