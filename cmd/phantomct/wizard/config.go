// Package wizard provides the YAML configuration and the interactive form
// for phantom generation.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrsinham/phantomct/internal/dicom"
	"github.com/mrsinham/phantomct/internal/phantom"
	"gopkg.in/yaml.v3"
)

// Config represents a complete generation configuration for YAML serialization.
type Config struct {
	OutputDir      string            `yaml:"output_dir"`
	NumSlices      int               `yaml:"num_slices"`
	Rows           int               `yaml:"rows"`
	Cols           int               `yaml:"cols"`
	PixelSpacing   []float64         `yaml:"pixel_spacing,flow"`
	SliceThickness float64           `yaml:"slice_thickness"`
	Modality       string            `yaml:"modality"`
	PatientName    string            `yaml:"patient_name"`
	PatientID      string            `yaml:"patient_id"`
	Seed           int64             `yaml:"seed"`
	Label          bool              `yaml:"label"`
	DICOMDIR       bool              `yaml:"dicomdir"`
	Tags           map[string]string `yaml:"tags,omitempty"`
	Phantom        PhantomConfig     `yaml:"phantom"`
}

// PhantomConfig holds the phantom shape with YAML tags.
type PhantomConfig struct {
	BackgroundSpread float64 `yaml:"background_spread"`
	BackgroundPeak   float64 `yaml:"background_peak"`
	BackgroundFloor  float64 `yaml:"background_floor"`
	TumorX           float64 `yaml:"tumor_x"`
	TumorY           float64 `yaml:"tumor_y"`
	TumorRadius      float64 `yaml:"tumor_radius"`
	TumorPeak        float64 `yaml:"tumor_peak"`
	FalloffRate      float64 `yaml:"falloff_rate"`
	MinIntensity     float64 `yaml:"min_intensity"`
	MaxIntensity     float64 `yaml:"max_intensity"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return FromGeneratorOptions(dicom.DefaultOptions())
}

// LoadFromYAML loads a configuration file. Fields absent from the file keep
// their default values.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToYAML writes cfg to path, creating the parent directory if needed.
func SaveToYAML(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func phantomConfigFromParams(p phantom.Params) PhantomConfig {
	return PhantomConfig{
		BackgroundSpread: p.BackgroundSpread,
		BackgroundPeak:   p.BackgroundPeak,
		BackgroundFloor:  p.BackgroundFloor,
		TumorX:           p.TumorX,
		TumorY:           p.TumorY,
		TumorRadius:      p.TumorRadius,
		TumorPeak:        p.TumorPeak,
		FalloffRate:      p.FalloffRate,
		MinIntensity:     p.MinIntensity,
		MaxIntensity:     p.MaxIntensity,
	}
}

func (c PhantomConfig) params() phantom.Params {
	return phantom.Params{
		BackgroundSpread: c.BackgroundSpread,
		BackgroundPeak:   c.BackgroundPeak,
		BackgroundFloor:  c.BackgroundFloor,
		TumorX:           c.TumorX,
		TumorY:           c.TumorY,
		TumorRadius:      c.TumorRadius,
		TumorPeak:        c.TumorPeak,
		FalloffRate:      c.FalloffRate,
		MinIntensity:     c.MinIntensity,
		MaxIntensity:     c.MaxIntensity,
	}
}
