package dicom

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mrsinham/phantomct/internal/dicom/modalities"
	"github.com/mrsinham/phantomct/internal/phantom"
	"github.com/mrsinham/phantomct/internal/util"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	// ExplicitVRLittleEndian is the transfer syntax of every file we write.
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

	// DefaultOutputDir is where slices go when no directory is given.
	DefaultOutputDir = "mock_brain_tumor_series"
)

// writeDatasetToFile writes a DICOM dataset to a file
func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := dicom.Write(f, ds, opts...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// GeneratorOptions contains options for series generation
type GeneratorOptions struct {
	OutputDir      string
	NumSlices      int
	Rows           int
	Cols           int
	PixelSpacing   [2]float64 // Row spacing, column spacing (mm)
	SliceThickness float64    // mm, also the distance between slice origins

	Modality    modalities.Modality
	PatientName string
	PatientID   string

	// Phantom shape. The zero value selects phantom.DefaultParams().
	Phantom phantom.Params

	// Seed selects reproducible UIDs when non-zero.
	Seed int64

	// AcquisitionTime sets StudyDate/StudyTime. Zero means now.
	AcquisitionTime time.Time

	// Custom tag overrides
	CustomTags util.ParsedTags

	// Burn "Slice i/N" into each frame
	Label bool

	// Output control
	Quiet            bool                     // Suppress console output
	ProgressCallback func(current, total int) // Optional callback for progress updates
}

// DefaultOptions returns the options of a plain run: six 256x256 CT slices,
// 0.5 mm pixels, 2 mm apart.
func DefaultOptions() GeneratorOptions {
	return GeneratorOptions{
		OutputDir:      DefaultOutputDir,
		NumSlices:      6,
		Rows:           256,
		Cols:           256,
		PixelSpacing:   [2]float64{0.5, 0.5},
		SliceThickness: 2.0,
		Modality:       modalities.CT,
		PatientName:    "Mock^BrainTumor",
		PatientID:      "MOCK123",
		Phantom:        phantom.DefaultParams(),
	}
}

// Validate checks the geometry of the run.
func (o GeneratorOptions) Validate() error {
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if o.NumSlices <= 0 {
		return fmt.Errorf("number of slices must be > 0, got %d", o.NumSlices)
	}
	if o.Rows <= 0 || o.Cols <= 0 {
		return fmt.Errorf("image dimensions must be > 0, got %dx%d", o.Rows, o.Cols)
	}
	if o.PixelSpacing[0] <= 0 || o.PixelSpacing[1] <= 0 {
		return fmt.Errorf("pixel spacing must be > 0, got %v", o.PixelSpacing)
	}
	if o.SliceThickness <= 0 {
		return fmt.Errorf("slice thickness must be > 0, got %v", o.SliceThickness)
	}
	if err := o.phantomParams().Validate(); err != nil {
		return fmt.Errorf("phantom: %w", err)
	}
	return nil
}

func (o GeneratorOptions) phantomParams() phantom.Params {
	if o.Phantom == (phantom.Params{}) {
		return phantom.DefaultParams()
	}
	return o.Phantom
}

// Series holds the values shared by every slice of a run.
type Series struct {
	StudyUID            string
	SeriesUID           string
	FrameOfReferenceUID string
	StudyDate           string
	StudyTime           string
	PatientName         string
	PatientID           string
	StudyDescription    string
	SeriesDescription   string
	Window              modalities.WindowPreset

	modality modalities.Generator
	uids     *util.UIDSource
}

// NewSeries chooses the identifiers and acquisition time of a run.
func NewSeries(opts GeneratorOptions) *Series {
	uids := util.NewUIDSource(opts.Seed)
	gen := modalities.GetGenerator(opts.Modality)

	acquired := opts.AcquisitionTime
	if acquired.IsZero() {
		acquired = time.Now()
	}

	return &Series{
		StudyUID:            uids.UID("study"),
		SeriesUID:           uids.UID("series"),
		FrameOfReferenceUID: uids.UID("frame_of_reference"),
		StudyDate:           acquired.Format("20060102"),
		StudyTime:           acquired.Format("150405"),
		PatientName:         opts.PatientName,
		PatientID:           opts.PatientID,
		StudyDescription:    "Mock brain tumor phantom",
		SeriesDescription:   fmt.Sprintf("Axial %s phantom", gen.Modality()),
		Window:              modalities.DefaultWindow(gen),
		modality:            gen,
		uids:                uids,
	}
}

// Modality returns the modality generator of the series.
func (s *Series) Modality() modalities.Generator {
	return s.modality
}

// SOPInstanceUID returns the instance UID of the 1-based slice number.
// Unseeded series return a fresh UID on every call.
func (s *Series) SOPInstanceUID(instanceNumber int) string {
	return s.uids.UID(fmt.Sprintf("instance_%d", instanceNumber))
}

// GeneratedFile contains information about a generated slice file
type GeneratedFile struct {
	Path                string
	StudyUID            string
	SeriesUID           string
	SOPInstanceUID      string
	FrameOfReferenceUID string
	PatientID           string
	InstanceNumber      int     // 1-based
	ZPosition           float64 // mm
	TumorStrength       float64 // 0..1
	Peak                uint8   // Brightest pixel inside the tumor footprint
}

// SliceFileName returns the file name of the 0-based slice index in a run of
// numSlices slices. The number is zero-padded to at least three digits.
func SliceFileName(index, numSlices int) string {
	width := max(3, len(strconv.Itoa(numSlices)))
	return fmt.Sprintf("slice_%0*d.dcm", width, index+1)
}

// sliceTask contains all data needed to write one slice
type sliceTask struct {
	index          int
	filePath       string
	sopInstanceUID string
	z              float64
	metadata       []*dicom.Element
	image          *phantom.Image
}

// GenerateSeries synthesizes every slice of the phantom and writes one DICOM
// file per slice into opts.OutputDir. Slices are written in order; the first
// error aborts the run.
func GenerateSeries(opts GeneratorOptions) ([]GeneratedFile, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	params := opts.phantomParams()

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	series := NewSeries(opts)
	if !opts.Quiet && series.uids.Deterministic() {
		fmt.Printf("Using seed: %d\n", opts.Seed)
	}

	generatedFiles := make([]GeneratedFile, 0, opts.NumSlices)
	for i := 0; i < opts.NumSlices; i++ {
		img, err := params.Synthesize(opts.Rows, opts.Cols, i, opts.NumSlices)
		if err != nil {
			return nil, fmt.Errorf("synthesize slice %d: %w", i+1, err)
		}
		peak := img.TumorPeak(params)
		if opts.Label {
			drawLabel(img, fmt.Sprintf("Slice %d/%d", i+1, opts.NumSlices))
		}

		task := sliceTask{
			index:          i,
			filePath:       filepath.Join(opts.OutputDir, SliceFileName(i, opts.NumSlices)),
			sopInstanceUID: series.SOPInstanceUID(i + 1),
			z:              float64(i) * opts.SliceThickness,
			image:          img,
		}
		task.metadata, err = buildSliceMetadata(opts, series, task)
		if err != nil {
			return nil, fmt.Errorf("build metadata for slice %d: %w", i+1, err)
		}

		if err := writeSlice(task); err != nil {
			return nil, fmt.Errorf("write slice %d: %w", i+1, err)
		}

		generatedFiles = append(generatedFiles, GeneratedFile{
			Path:                task.filePath,
			StudyUID:            series.StudyUID,
			SeriesUID:           series.SeriesUID,
			SOPInstanceUID:      task.sopInstanceUID,
			FrameOfReferenceUID: series.FrameOfReferenceUID,
			PatientID:           getTagValue(opts.CustomTags, "PatientID", series.PatientID),
			InstanceNumber:      i + 1,
			ZPosition:           task.z,
			TumorStrength:       params.TumorStrength(i, opts.NumSlices),
			Peak:                peak,
		})

		if opts.ProgressCallback != nil {
			opts.ProgressCallback(i+1, opts.NumSlices)
		}
		if !opts.Quiet {
			fmt.Printf("Saved: %s\n", task.filePath)
		}
	}

	if !opts.Quiet {
		fmt.Println("Done. Open the folder in your DICOM viewer.")
	}

	return generatedFiles, nil
}

// getTagValue returns the custom tag value if set, otherwise returns the generated value.
func getTagValue(customTags util.ParsedTags, name, generated string) string {
	if val, ok := customTags.Get(name); ok {
		return val
	}
	return generated
}

// buildSliceMetadata returns every element of a slice except PixelData,
// sorted by (Group, Element).
func buildSliceMetadata(opts GeneratorOptions, series *Series, task sliceTask) ([]*dicom.Element, error) {
	gen := series.modality
	instanceNumber := task.index + 1
	sopInstanceUID := task.sopInstanceUID

	metadata := []*dicom.Element{
		// File meta
		mustNewElement(tag.MediaStorageSOPClassUID, []string{gen.SOPClassUID()}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}),
		mustNewElement(tag.ImplementationClassUID, []string{util.ImplementationClassUID}),

		// Patient
		mustNewElement(tag.PatientName, []string{series.PatientName}),
		mustNewElement(tag.PatientID, []string{series.PatientID}),

		// Study
		mustNewElement(tag.StudyInstanceUID, []string{series.StudyUID}),
		mustNewElement(tag.StudyID, []string{"1"}),
		mustNewElement(tag.StudyDate, []string{series.StudyDate}),
		mustNewElement(tag.StudyTime, []string{series.StudyTime}),
		mustNewElement(tag.StudyDescription, []string{series.StudyDescription}),

		// Series
		mustNewElement(tag.Modality, []string{string(gen.Modality())}),
		mustNewElement(tag.SeriesInstanceUID, []string{series.SeriesUID}),
		mustNewElement(tag.SeriesNumber, []string{"1"}),
		mustNewElement(tag.SeriesDescription, []string{series.SeriesDescription}),
		mustNewElement(tag.BodyPartExamined, []string{"HEAD"}),
		mustNewElement(tag.FrameOfReferenceUID, []string{series.FrameOfReferenceUID}),

		// Instance
		mustNewElement(tag.SOPClassUID, []string{gen.SOPClassUID()}),
		mustNewElement(tag.SOPInstanceUID, []string{sopInstanceUID}),
		mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(instanceNumber)}),

		// Geometry
		mustNewElement(tag.ImagePositionPatient, []string{modalities.FloatToDS(0), modalities.FloatToDS(0), modalities.FloatToDS(task.z)}),
		mustNewElement(tag.ImageOrientationPatient, []string{"1", "0", "0", "0", "1", "0"}),
		mustNewElement(tag.PixelSpacing, []string{modalities.FloatToDS(opts.PixelSpacing[0]), modalities.FloatToDS(opts.PixelSpacing[1])}),
		mustNewElement(tag.SliceThickness, []string{modalities.FloatToDS(opts.SliceThickness)}),
		mustNewElement(tag.SliceLocation, []string{modalities.FloatToDS(task.z)}),

		// Pixel description
		mustNewElement(tag.Rows, []int{opts.Rows}),
		mustNewElement(tag.Columns, []int{opts.Cols}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.BitsAllocated, []int{8}),
		mustNewElement(tag.BitsStored, []int{8}),
		mustNewElement(tag.HighBit, []int{7}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.WindowCenter, []string{modalities.FloatToDS(series.Window.Center)}),
		mustNewElement(tag.WindowWidth, []string{modalities.FloatToDS(series.Window.Width)}),
	}

	ds := &dicom.Dataset{Elements: metadata}
	if err := gen.AppendModalityElements(ds); err != nil {
		return nil, fmt.Errorf("add modality elements: %w", err)
	}
	metadata = ds.Elements

	metadata, err := applyTagOverrides(metadata, opts.CustomTags)
	if err != nil {
		return nil, err
	}

	sort.Slice(metadata, func(i, j int) bool {
		if metadata[i].Tag.Group != metadata[j].Tag.Group {
			return metadata[i].Tag.Group < metadata[j].Tag.Group
		}
		return metadata[i].Tag.Element < metadata[j].Tag.Element
	})
	return metadata, nil
}

// applyTagOverrides replaces or appends one element per override.
func applyTagOverrides(elements []*dicom.Element, overrides util.ParsedTags) ([]*dicom.Element, error) {
	for _, o := range overrides {
		elem, err := dicom.NewElement(o.Info.Tag, []string{o.Value})
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", o.Info.Name, err)
		}
		replaced := false
		for i, existing := range elements {
			if existing.Tag == o.Info.Tag {
				elements[i] = elem
				replaced = true
				break
			}
		}
		if !replaced {
			elements = append(elements, elem)
		}
	}
	return elements, nil
}

// writeSlice attaches the pixel data to the metadata and writes the file.
func writeSlice(task sliceTask) error {
	img := task.image
	pixelsPerFrame := img.Rows * img.Cols

	nativeFrame := frame.NewNativeFrame[uint8](8, img.Rows, img.Cols, pixelsPerFrame, 1)
	copy(nativeFrame.RawData, img.Pixels)

	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	elements := make([]*dicom.Element, len(task.metadata)+1)
	copy(elements, task.metadata)
	elements[len(task.metadata)] = mustNewElement(tag.PixelData, pixelDataInfo)

	return writeDatasetToFile(task.filePath, dicom.Dataset{Elements: elements})
}

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
