package dicom

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mrsinham/phantomct/internal/dicom/modalities"
	"github.com/mrsinham/phantomct/internal/phantom"
	"github.com/mrsinham/phantomct/internal/util"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// testOptions returns small, quiet options writing into a temp directory.
func testOptions(t *testing.T) GeneratorOptions {
	t.Helper()
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "series")
	opts.Rows = 32
	opts.Cols = 32
	opts.Quiet = true
	return opts
}

func parseHeader(t *testing.T, path string) dicom.Dataset {
	t.Helper()
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return ds
}

func stringValues(t *testing.T, ds dicom.Dataset, tg tag.Tag) []string {
	t.Helper()
	elem, err := ds.FindElementByTag(tg)
	if err != nil {
		t.Fatalf("tag %v not found: %v", tg, err)
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok {
		t.Fatalf("tag %v is not a string element", tg)
	}
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimRight(v, " \x00")
	}
	return trimmed
}

func intValue(t *testing.T, ds dicom.Dataset, tg tag.Tag) int {
	t.Helper()
	elem, err := ds.FindElementByTag(tg)
	if err != nil {
		t.Fatalf("tag %v not found: %v", tg, err)
	}
	values, ok := elem.Value.GetValue().([]int)
	if !ok || len(values) == 0 {
		t.Fatalf("tag %v is not an int element", tg)
	}
	return values[0]
}

func TestSliceFileName(t *testing.T) {
	tests := []struct {
		index, n int
		want     string
	}{
		{0, 6, "slice_001.dcm"},
		{5, 6, "slice_006.dcm"},
		{0, 1, "slice_001.dcm"},
		{99, 999, "slice_100.dcm"},
		{0, 1000, "slice_0001.dcm"},
		{999, 1000, "slice_1000.dcm"},
	}
	for _, tt := range tests {
		if got := SliceFileName(tt.index, tt.n); got != tt.want {
			t.Errorf("SliceFileName(%d, %d) = %q, want %q", tt.index, tt.n, got, tt.want)
		}
	}
}

func TestGenerateSeries_DefaultRun(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), DefaultOutputDir)
	opts.Quiet = true

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	if len(files) != 6 {
		t.Fatalf("expected 6 files, got %d", len(files))
	}

	entries, err := os.ReadDir(opts.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{"slice_001.dcm", "slice_002.dcm", "slice_003.dcm", "slice_004.dcm", "slice_005.dcm", "slice_006.dcm"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("output files = %v, want %v", names, want)
	}

	// The tumor is brightest on one of the two middle slices
	brightest := 0
	for i, f := range files {
		if f.Peak > files[brightest].Peak {
			brightest = i
		}
	}
	if brightest != 2 && brightest != 3 {
		t.Errorf("brightest tumor on slice %d, want slice 3 or 4", brightest+1)
	}
	if files[0].TumorStrength != 0 || files[5].TumorStrength != 0 {
		t.Errorf("edge slices should have no tumor, got %v and %v", files[0].TumorStrength, files[5].TumorStrength)
	}
}

func TestGenerateSeries_SharedIdentifiers(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 4

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}

	sopUIDs := make(map[string]bool)
	zs := make(map[float64]bool)
	for i, f := range files {
		ds := parseHeader(t, f.Path)

		if got := stringValues(t, ds, tag.StudyInstanceUID)[0]; got != files[0].StudyUID {
			t.Errorf("slice %d StudyInstanceUID = %s, want %s", i+1, got, files[0].StudyUID)
		}
		if got := stringValues(t, ds, tag.SeriesInstanceUID)[0]; got != files[0].SeriesUID {
			t.Errorf("slice %d SeriesInstanceUID = %s, want %s", i+1, got, files[0].SeriesUID)
		}
		if got := stringValues(t, ds, tag.InstanceNumber)[0]; got != strconv.Itoa(i+1) {
			t.Errorf("slice %d InstanceNumber = %s", i+1, got)
		}
		if f.InstanceNumber != i+1 {
			t.Errorf("slice %d GeneratedFile.InstanceNumber = %d", i+1, f.InstanceNumber)
		}

		sop := stringValues(t, ds, tag.SOPInstanceUID)[0]
		if sop != f.SOPInstanceUID {
			t.Errorf("slice %d SOPInstanceUID = %s, want %s", i+1, sop, f.SOPInstanceUID)
		}
		if sopUIDs[sop] {
			t.Errorf("slice %d reuses SOPInstanceUID %s", i+1, sop)
		}
		sopUIDs[sop] = true

		wantZ := float64(i) * opts.SliceThickness
		if f.ZPosition != wantZ {
			t.Errorf("slice %d z = %v, want %v", i+1, f.ZPosition, wantZ)
		}
		if zs[f.ZPosition] {
			t.Errorf("slice %d repeats z %v", i+1, f.ZPosition)
		}
		zs[f.ZPosition] = true

		pos := stringValues(t, ds, tag.ImagePositionPatient)
		if len(pos) != 3 || pos[0] != "0" || pos[1] != "0" || pos[2] != modalities.FloatToDS(wantZ) {
			t.Errorf("slice %d ImagePositionPatient = %v", i+1, pos)
		}
	}
}

func TestGenerateSeries_GeometryKeepsFullPrecision(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 4
	opts.SliceThickness = 1.234567
	opts.PixelSpacing = [2]float64{0.4296875, 0.123456789}

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}

	parse := func(s string) float64 {
		t.Helper()
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return v
	}

	for i, f := range files {
		ds := parseHeader(t, f.Path)
		wantZ := float64(i) * opts.SliceThickness

		pos := stringValues(t, ds, tag.ImagePositionPatient)
		if got := parse(pos[2]); got != wantZ {
			t.Errorf("slice %d ImagePositionPatient z = %v, want %v", i+1, got, wantZ)
		}
		if got := parse(stringValues(t, ds, tag.SliceLocation)[0]); got != wantZ {
			t.Errorf("slice %d SliceLocation = %v, want %v", i+1, got, wantZ)
		}
		if got := parse(stringValues(t, ds, tag.SliceThickness)[0]); got != opts.SliceThickness {
			t.Errorf("slice %d SliceThickness = %v, want %v", i+1, got, opts.SliceThickness)
		}
		spacing := stringValues(t, ds, tag.PixelSpacing)
		if parse(spacing[0]) != opts.PixelSpacing[0] || parse(spacing[1]) != opts.PixelSpacing[1] {
			t.Errorf("slice %d PixelSpacing = %v, want %v", i+1, spacing, opts.PixelSpacing)
		}
	}
}

func TestGenerateSeries_Header(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 2
	opts.Rows, opts.Cols = 24, 40
	opts.AcquisitionTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	ds := parseHeader(t, files[1].Path)

	strChecks := map[tag.Tag]string{
		tag.PatientName:               "Mock^BrainTumor",
		tag.PatientID:                 "MOCK123",
		tag.Modality:                  "CT",
		tag.SOPClassUID:               "1.2.840.10008.5.1.4.1.1.2",
		tag.MediaStorageSOPClassUID:   "1.2.840.10008.5.1.4.1.1.2",
		tag.TransferSyntaxUID:         ExplicitVRLittleEndian,
		tag.StudyDate:                 "20240309",
		tag.StudyTime:                 "140507",
		tag.SeriesNumber:              "1",
		tag.PhotometricInterpretation: "MONOCHROME2",
		tag.SliceThickness:            "2",
		tag.SliceLocation:             "2",
	}
	for tg, want := range strChecks {
		if got := stringValues(t, ds, tg)[0]; got != want {
			t.Errorf("tag %v = %q, want %q", tg, got, want)
		}
	}

	intChecks := map[tag.Tag]int{
		tag.Rows:                24,
		tag.Columns:             40,
		tag.SamplesPerPixel:     1,
		tag.BitsAllocated:       8,
		tag.BitsStored:          8,
		tag.HighBit:             7,
		tag.PixelRepresentation: 0,
	}
	for tg, want := range intChecks {
		if got := intValue(t, ds, tg); got != want {
			t.Errorf("tag %v = %d, want %d", tg, got, want)
		}
	}

	orientation := stringValues(t, ds, tag.ImageOrientationPatient)
	if strings.Join(orientation, `\`) != `1\0\0\0\1\0` {
		t.Errorf("ImageOrientationPatient = %v", orientation)
	}
	spacing := stringValues(t, ds, tag.PixelSpacing)
	if strings.Join(spacing, `\`) != `0.5\0.5` {
		t.Errorf("PixelSpacing = %v", spacing)
	}
	if got := stringValues(t, ds, tag.MediaStorageSOPInstanceUID)[0]; got != files[1].SOPInstanceUID {
		t.Errorf("MediaStorageSOPInstanceUID = %s, want %s", got, files[1].SOPInstanceUID)
	}
}

func TestGenerateSeries_MR(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 1
	opts.Modality = modalities.MR

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	ds := parseHeader(t, files[0].Path)
	if got := stringValues(t, ds, tag.Modality)[0]; got != "MR" {
		t.Errorf("Modality = %q, want MR", got)
	}
	if got := stringValues(t, ds, tag.SOPClassUID)[0]; got != "1.2.840.10008.5.1.4.1.1.4" {
		t.Errorf("SOPClassUID = %q, want MR Image Storage", got)
	}
	if files[0].TumorStrength != 1 {
		t.Errorf("single slice tumor strength = %v, want 1", files[0].TumorStrength)
	}
}

func TestGenerateSeries_Seeded(t *testing.T) {
	run := func() []GeneratedFile {
		opts := testOptions(t)
		opts.NumSlices = 3
		opts.Seed = 42
		files, err := GenerateSeries(opts)
		if err != nil {
			t.Fatalf("GenerateSeries failed: %v", err)
		}
		return files
	}

	a, b := run(), run()
	for i := range a {
		if a[i].StudyUID != b[i].StudyUID || a[i].SeriesUID != b[i].SeriesUID || a[i].SOPInstanceUID != b[i].SOPInstanceUID {
			t.Errorf("slice %d: seeded runs produced different UIDs", i+1)
		}
		if a[i].Peak != b[i].Peak {
			t.Errorf("slice %d: seeded runs produced different pixels", i+1)
		}
	}

	opts := testOptions(t)
	opts.NumSlices = 1
	c, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	if c[0].StudyUID == a[0].StudyUID {
		t.Error("unseeded run should not reuse the seeded study UID")
	}
	if !strings.HasPrefix(c[0].StudyUID, "2.25.") {
		t.Errorf("unseeded study UID %s should use the 2.25 root", c[0].StudyUID)
	}
}

func TestGenerateSeries_CustomTags(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 2
	tags, err := util.ParseTagFlags([]string{
		"PatientName=Doe^Jane",
		"InstitutionName=Phantom Lab",
		"WindowCenter=60",
	})
	if err != nil {
		t.Fatalf("ParseTagFlags failed: %v", err)
	}
	opts.CustomTags = tags

	files, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	for _, f := range files {
		ds := parseHeader(t, f.Path)
		if got := stringValues(t, ds, tag.PatientName)[0]; got != "Doe^Jane" {
			t.Errorf("PatientName = %q, want Doe^Jane", got)
		}
		if got := stringValues(t, ds, tag.InstitutionName)[0]; got != "Phantom Lab" {
			t.Errorf("InstitutionName = %q, want Phantom Lab", got)
		}
		if got := stringValues(t, ds, tag.WindowCenter)[0]; got != "60" {
			t.Errorf("WindowCenter = %q, want 60", got)
		}
		if got := stringValues(t, ds, tag.PatientID)[0]; got != "MOCK123" {
			t.Errorf("PatientID = %q, want MOCK123", got)
		}
	}
}

func TestGenerateSeries_ProgressCallback(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 3

	var calls []int
	opts.ProgressCallback = func(current, total int) {
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
		calls = append(calls, current)
	}
	if _, err := GenerateSeries(opts); err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	if len(calls) != 3 || calls[0] != 1 || calls[2] != 3 {
		t.Errorf("progress calls = %v, want [1 2 3]", calls)
	}
}

func TestGenerateSeries_Label(t *testing.T) {
	plain := testOptions(t)
	plain.NumSlices = 1
	plain.Rows, plain.Cols = 64, 64
	plain.Seed = 7
	plain.AcquisitionTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	labeled := plain
	labeled.OutputDir = filepath.Join(t.TempDir(), "labeled")
	labeled.Label = true

	a, err := GenerateSeries(plain)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}
	b, err := GenerateSeries(labeled)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}

	// The tumor peak is measured before the label is drawn
	if a[0].Peak != b[0].Peak {
		t.Errorf("label changed the reported peak: %d vs %d", a[0].Peak, b[0].Peak)
	}

	dataA, err := os.ReadFile(a[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	dataB, err := os.ReadFile(b[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(dataA) == string(dataB) {
		t.Error("labeled slice should differ from the plain one")
	}
}

func TestGenerateSeries_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GeneratorOptions)
	}{
		{"zero slices", func(o *GeneratorOptions) { o.NumSlices = 0 }},
		{"negative rows", func(o *GeneratorOptions) { o.Rows = -1 }},
		{"zero cols", func(o *GeneratorOptions) { o.Cols = 0 }},
		{"zero spacing", func(o *GeneratorOptions) { o.PixelSpacing = [2]float64{0, 0.5} }},
		{"zero thickness", func(o *GeneratorOptions) { o.SliceThickness = 0 }},
		{"empty output", func(o *GeneratorOptions) { o.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			tt.modify(&opts)
			if _, err := GenerateSeries(opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenerateSeries_UnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := testOptions(t)
	opts.OutputDir = filepath.Join(blocker, "series")
	_, err := GenerateSeries(opts)
	if err == nil {
		t.Fatal("expected error when output directory cannot be created")
	}
	if !strings.Contains(err.Error(), "create output directory") {
		t.Errorf("error should name the failing step, got: %v", err)
	}
}

func TestGenerateSeries_ZeroPhantomUsesDefaults(t *testing.T) {
	opts := testOptions(t)
	opts.NumSlices = 1
	opts.Phantom = DefaultOptions().Phantom
	withDefaults, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries failed: %v", err)
	}

	opts = testOptions(t)
	opts.NumSlices = 1
	opts.Phantom = phantom.Params{}
	withZero, err := GenerateSeries(opts)
	if err != nil {
		t.Fatalf("GenerateSeries with zero phantom failed: %v", err)
	}
	if withDefaults[0].Peak != withZero[0].Peak {
		t.Errorf("zero phantom params should behave like the defaults")
	}
}
