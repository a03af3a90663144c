package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olivier-w/climpviz/internal/analysis"
	"gopkg.in/yaml.v3"
)

// DefaultParticleCap bounds every particle pool.
const DefaultParticleCap = 2000

// Config is the on-disk configuration. It is only ever read.
type Config struct {
	Effect      Effect              `yaml:"effect"`
	Analyzer    analysis.Config     `yaml:"analyzer"`
	Peak        analysis.PeakConfig `yaml:"peak"`
	ParticleCap int                 `yaml:"particle_cap"`
	PreviewFPS  int                 `yaml:"preview_fps"`
	Export      Export              `yaml:"export"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Effect: DefaultEffect(),
		Analyzer: analysis.Config{
			FFTSize:     analysis.DefaultFFTSize,
			Smoothing:   analysis.DefaultSmoothing,
			MinDecibels: analysis.DefaultMinDecibels,
			MaxDecibels: analysis.DefaultMaxDecibels,
		},
		Peak: analysis.PeakConfig{
			History:    analysis.DefaultPeakHistory,
			Ratio:      analysis.DefaultPeakRatio,
			Refractory: analysis.DefaultPeakRefractory,
		},
		ParticleCap: DefaultParticleCap,
		PreviewFPS:  30,
		Export:      DefaultExport(),
	}
}

// LoadFromFile overlays the YAML file at path onto c.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.Effect = c.Effect.Normalize()
	if c.ParticleCap <= 0 {
		c.ParticleCap = DefaultParticleCap
	}
	if c.PreviewFPS <= 0 {
		c.PreviewFPS = 30
	}
	return nil
}

// DefaultPaths lists where TryLoadDefault looks, in order.
func DefaultPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".config", "climpviz", "config.yaml"),
		filepath.Join(home, ".config", "climpviz", "config.yml"),
		filepath.Join(home, ".climpviz.yaml"),
	}
}

// TryLoadDefault loads the first default path that exists. It returns the
// path that was loaded ("" if none) and any parse error.
func (c *Config) TryLoadDefault() (string, error) {
	for _, p := range DefaultPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, c.LoadFromFile(p)
		}
	}
	return "", nil
}
