package config

import "sort"

// Presets are complete configs keyed by name. GetPreset returns copies.
var Presets = map[string]func() *Config{
	"default": DefaultConfig,
	"quick": func() *Config {
		c := DefaultConfig()
		c.Preset = "quick"
		c.Train.Iterations = 2000
		c.Train.LogEvery = 500
		c.Render.Frames = 60
		return c
	},
	"dense": func() *Config {
		c := DefaultConfig()
		c.Preset = "dense"
		c.Data.TrainPoints = 16
		c.Data.Collocation = 200
		return c
	},
	"noisy": func() *Config {
		c := DefaultConfig()
		c.Preset = "noisy"
		c.Data.Noise = 0.1
		return c
	},
}

var presetDescriptions = map[string]string{
	"default": "k=0.5, 8 points on [0,5], 20000 iterations",
	"quick":   "2000 iterations, 60 frames",
	"dense":   "16 training points, 200 collocation points",
	"noisy":   "noise std-dev 0.1",
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Describe(name string) string {
	return presetDescriptions[name]
}
