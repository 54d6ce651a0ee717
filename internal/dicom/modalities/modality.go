// Package modalities provides modality-specific metadata for phantom series.
package modalities

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
)

// Modality represents a DICOM imaging modality type.
type Modality string

const (
	CT Modality = "CT" // Computed Tomography
	MR Modality = "MR" // Magnetic Resonance
)

// AllModalities returns all supported modalities.
func AllModalities() []Modality {
	return []Modality{CT, MR}
}

// IsValid checks if a modality string is valid.
func IsValid(m string) bool {
	for _, valid := range AllModalities() {
		if string(valid) == m {
			return true
		}
	}
	return false
}

// Parse converts a user-supplied modality name, ignoring case.
// An empty string selects CT.
func Parse(s string) (Modality, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "" {
		return CT, nil
	}
	if !IsValid(upper) {
		return "", fmt.Errorf("invalid modality %q, valid options: %v", s, AllModalities())
	}
	return Modality(upper), nil
}

// WindowPreset represents a window/level preset.
type WindowPreset struct {
	Name   string
	Center float64
	Width  float64
}

// Generator defines the interface for modality-specific metadata.
type Generator interface {
	// Modality returns the modality type.
	Modality() Modality

	// SOPClassUID returns the storage SOP Class UID for this modality.
	SOPClassUID() string

	// AppendModalityElements appends modality-specific elements to a dataset.
	AppendModalityElements(ds *dicom.Dataset) error

	// WindowPresets returns window presets, the first one being the default.
	WindowPresets() []WindowPreset
}

// GetGenerator returns the generator for the specified modality.
// Unknown modalities fall back to CT.
func GetGenerator(m Modality) Generator {
	switch m {
	case MR:
		return &MRGenerator{}
	case CT:
		fallthrough
	default:
		return &CTGenerator{}
	}
}

// DefaultWindow returns the first preset of g.
func DefaultWindow(g Generator) WindowPreset {
	return g.WindowPresets()[0]
}
