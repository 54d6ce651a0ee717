package wizard

import (
	"fmt"

	"github.com/mrsinham/phantomct/internal/dicom"
	"github.com/mrsinham/phantomct/internal/dicom/modalities"
	"github.com/mrsinham/phantomct/internal/phantom"
	"github.com/mrsinham/phantomct/internal/util"
)

// ToGeneratorOptions converts a Config to GeneratorOptions for generation.
func ToGeneratorOptions(c *Config) (dicom.GeneratorOptions, error) {
	mod, err := modalities.Parse(c.Modality)
	if err != nil {
		return dicom.GeneratorOptions{}, err
	}

	var spacing [2]float64
	switch len(c.PixelSpacing) {
	case 1:
		spacing = [2]float64{c.PixelSpacing[0], c.PixelSpacing[0]}
	case 2:
		spacing = [2]float64{c.PixelSpacing[0], c.PixelSpacing[1]}
	default:
		return dicom.GeneratorOptions{}, fmt.Errorf("pixel_spacing needs 1 or 2 values, got %d", len(c.PixelSpacing))
	}

	tags, err := util.ParseTagMap(c.Tags)
	if err != nil {
		return dicom.GeneratorOptions{}, fmt.Errorf("tags: %w", err)
	}

	opts := dicom.GeneratorOptions{
		OutputDir:      c.OutputDir,
		NumSlices:      c.NumSlices,
		Rows:           c.Rows,
		Cols:           c.Cols,
		PixelSpacing:   spacing,
		SliceThickness: c.SliceThickness,
		Modality:       mod,
		PatientName:    c.PatientName,
		PatientID:      c.PatientID,
		Phantom:        c.Phantom.params(),
		Seed:           c.Seed,
		CustomTags:     tags,
		Label:          c.Label,
	}
	if err := opts.Validate(); err != nil {
		return dicom.GeneratorOptions{}, err
	}
	return opts, nil
}

// FromGeneratorOptions creates a Config from GeneratorOptions.
// Used for --save-config to export CLI options as YAML.
func FromGeneratorOptions(opts dicom.GeneratorOptions) *Config {
	mod := string(opts.Modality)
	if mod == "" {
		mod = string(modalities.CT)
	}

	params := opts.Phantom
	if params == (phantom.Params{}) {
		params = phantom.DefaultParams()
	}

	return &Config{
		OutputDir:      opts.OutputDir,
		NumSlices:      opts.NumSlices,
		Rows:           opts.Rows,
		Cols:           opts.Cols,
		PixelSpacing:   []float64{opts.PixelSpacing[0], opts.PixelSpacing[1]},
		SliceThickness: opts.SliceThickness,
		Modality:       mod,
		PatientName:    opts.PatientName,
		PatientID:      opts.PatientID,
		Seed:           opts.Seed,
		Label:          opts.Label,
		Tags:           opts.CustomTags.Map(),
		Phantom:        phantomConfigFromParams(params),
	}
}
