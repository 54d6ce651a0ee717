package modalities

import (
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// CTGenerator generates CT (Computed Tomography) specific metadata.
type CTGenerator struct{}

// Modality returns the CT modality type.
func (g *CTGenerator) Modality() Modality {
	return CT
}

// SOPClassUID returns the CT Image Storage SOP Class UID.
func (g *CTGenerator) SOPClassUID() string {
	return "1.2.840.10008.5.1.4.1.1.2"
}

// AppendModalityElements appends CT-specific DICOM elements to a dataset.
// Stored values are the phantom intensities themselves, so the rescale is
// the identity.
func (g *CTGenerator) AppendModalityElements(ds *dicom.Dataset) error {
	elements := []*dicom.Element{
		mustNewElement(tag.KVP, []string{FloatToDS(120)}),
		mustNewElement(tag.ConvolutionKernel, []string{"SOFT"}),
		mustNewElement(tag.RescaleIntercept, []string{FloatToDS(0)}),
		mustNewElement(tag.RescaleSlope, []string{FloatToDS(1)}),
		mustNewElement(tag.RescaleType, []string{"HU"}),
		mustNewElement(tag.GantryDetectorTilt, []string{FloatToDS(0)}),
	}

	ds.Elements = append(ds.Elements, elements...)
	return nil
}

// WindowPresets returns CT window presets.
func (g *CTGenerator) WindowPresets() []WindowPreset {
	return []WindowPreset{
		{Name: "PHANTOM", Center: 100, Width: 200},
		{Name: "BRAIN", Center: 40, Width: 80},
		{Name: "SUBDURAL", Center: 75, Width: 215},
	}
}
