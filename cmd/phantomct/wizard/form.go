package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mrsinham/phantomct/internal/dicom/modalities"
)

// formValues holds string versions of the config for form binding
// (huh binds to strings).
type formValues struct {
	outputDir      string
	numSlices      string
	rows           string
	cols           string
	pixelSpacing   string
	sliceThickness string
	modality       string
	patientName    string
	patientID      string
	seed           string
	label          bool
	dicomdir       bool
	saveConfig     string
}

func newFormValues(c *Config) *formValues {
	spacing := make([]string, len(c.PixelSpacing))
	for i, v := range c.PixelSpacing {
		spacing[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return &formValues{
		outputDir:      c.OutputDir,
		numSlices:      strconv.Itoa(c.NumSlices),
		rows:           strconv.Itoa(c.Rows),
		cols:           strconv.Itoa(c.Cols),
		pixelSpacing:   strings.Join(spacing, ","),
		sliceThickness: strconv.FormatFloat(c.SliceThickness, 'g', -1, 64),
		modality:       c.Modality,
		patientName:    c.PatientName,
		patientID:      c.PatientID,
		seed:           strconv.FormatInt(c.Seed, 10),
		label:          c.Label,
		dicomdir:       c.DICOMDIR,
	}
}

// apply parses the form values back into c.
func (v *formValues) apply(c *Config) error {
	var err error
	if c.NumSlices, err = strconv.Atoi(v.numSlices); err != nil {
		return fmt.Errorf("number of slices: %w", err)
	}
	if c.Rows, err = strconv.Atoi(v.rows); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if c.Cols, err = strconv.Atoi(v.cols); err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	if c.PixelSpacing, err = ParsePixelSpacing(v.pixelSpacing); err != nil {
		return err
	}
	if c.SliceThickness, err = strconv.ParseFloat(v.sliceThickness, 64); err != nil {
		return fmt.Errorf("slice thickness: %w", err)
	}
	if c.Seed, err = strconv.ParseInt(strings.TrimSpace(v.seed), 10, 64); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	c.OutputDir = v.outputDir
	c.Modality = v.modality
	c.PatientName = v.patientName
	c.PatientID = v.patientID
	c.Label = v.label
	c.DICOMDIR = v.dicomdir
	return nil
}

// ParsePixelSpacing parses "ROW,COL" or a single value used for both.
func ParsePixelSpacing(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return nil, fmt.Errorf("pixel spacing %q: expected ROW,COL or a single value", s)
	}
	spacing := make([]float64, 0, 2)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("pixel spacing %q: %w", s, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("pixel spacing %q: values must be > 0", s)
		}
		spacing = append(spacing, v)
	}
	if len(spacing) == 1 {
		spacing = append(spacing, spacing[0])
	}
	return spacing, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validatePositiveFloat(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validateSeed(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("must be an integer (0 for random UIDs)")
	}
	return nil
}

func validatePixelSpacing(s string) error {
	_, err := ParsePixelSpacing(s)
	return err
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// newForm builds the configuration form bound to v.
func newForm(v *formValues) *huh.Form {
	modalityOptions := make([]huh.Option[string], 0, len(modalities.AllModalities()))
	for _, m := range modalities.AllModalities() {
		label := string(m)
		switch m {
		case modalities.CT:
			label = "CT - Computed Tomography"
		case modalities.MR:
			label = "MR - Magnetic Resonance"
		}
		modalityOptions = append(modalityOptions, huh.NewOption(label, string(m)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(TitleStyle.Render("PHANTOMCT - Series")).
				Description("Geometry of the synthetic brain series"),

			huh.NewInput().
				Key("output").
				Title("Output Directory").
				Value(&v.outputDir).
				Validate(validateRequired("output directory")),

			huh.NewInput().
				Key("num_slices").
				Title("Number of Slices").
				Value(&v.numSlices).
				Validate(validatePositiveInt),

			huh.NewInput().
				Key("rows").
				Title("Rows").
				Value(&v.rows).
				Validate(validatePositiveInt),

			huh.NewInput().
				Key("cols").
				Title("Columns").
				Value(&v.cols).
				Validate(validatePositiveInt),

			huh.NewInput().
				Key("pixel_spacing").
				Title("Pixel Spacing (mm)").
				Placeholder("e.g., 0.5 or 0.5,0.5").
				Value(&v.pixelSpacing).
				Validate(validatePixelSpacing),

			huh.NewInput().
				Key("slice_thickness").
				Title("Slice Thickness (mm)").
				Value(&v.sliceThickness).
				Validate(validatePositiveFloat),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("modality").
				Title("Modality").
				Options(modalityOptions...).
				Value(&v.modality),

			huh.NewInput().
				Key("patient_name").
				Title("Patient Name").
				Value(&v.patientName).
				Validate(validateRequired("patient name")),

			huh.NewInput().
				Key("patient_id").
				Title("Patient ID").
				Value(&v.patientID).
				Validate(validateRequired("patient ID")),

			huh.NewInput().
				Key("seed").
				Title("Seed").
				Description("Non-zero seeds give reproducible UIDs").
				Value(&v.seed).
				Validate(validateSeed),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("label").
				Title("Burn slice labels into the images?").
				Value(&v.label),

			huh.NewConfirm().
				Key("dicomdir").
				Title("Write a DICOMDIR index?").
				Value(&v.dicomdir),

			huh.NewInput().
				Key("save_config").
				Title("Save configuration to").
				Placeholder("leave empty to skip").
				Value(&v.saveConfig),
		),
	).WithShowHelp(true).WithShowErrors(true)
}
