package modalities

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// MRGenerator generates MR (Magnetic Resonance) specific metadata.
type MRGenerator struct{}

// Modality returns the MR modality type.
func (g *MRGenerator) Modality() Modality {
	return MR
}

// SOPClassUID returns the MR Image Storage SOP Class UID.
func (g *MRGenerator) SOPClassUID() string {
	return "1.2.840.10008.5.1.4.1.1.4"
}

// AppendModalityElements appends MR-specific DICOM elements to a dataset.
// Values describe a T1 spin echo at 1.5T.
func (g *MRGenerator) AppendModalityElements(ds *dicom.Dataset) error {
	const fieldStrength = 1.5

	elements := []*dicom.Element{
		mustNewElement(tag.MagneticFieldStrength, []string{FloatToDS(fieldStrength)}),
		mustNewElement(tag.ImagingFrequency, []string{FloatToDS(fieldStrength * 42.58)}),
		mustNewElement(tag.EchoTime, []string{FloatToDS(15)}),
		mustNewElement(tag.RepetitionTime, []string{FloatToDS(500)}),
		mustNewElement(tag.FlipAngle, []string{FloatToDS(90)}),
		mustNewElement(tag.SequenceName, []string{"T1_SE"}),
	}

	ds.Elements = append(ds.Elements, elements...)
	return nil
}

// WindowPresets returns MR window presets.
func (g *MRGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{
		{Name: "DEFAULT", Center: 128, Width: 256},
		{Name: "CONTRAST", Center: 100, Width: 160},
	}
}
