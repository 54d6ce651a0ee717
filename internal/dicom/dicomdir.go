package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrsinham/phantomct/internal/util"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// DICOMDIRName is the file name of the index written next to the slices.
const DICOMDIRName = "DICOMDIR"

// Record types of the directory hierarchy, root first.
const (
	recordPatient = "PATIENT"
	recordStudy   = "STUDY"
	recordSeries  = "SERIES"
	recordImage   = "IMAGE"
)

// imageEntry is what an IMAGE record needs from one slice file.
type imageEntry struct {
	FileID         []string
	InstanceNumber int
	SOPClassUID    string
	SOPInstanceUID string
}

type seriesEntry struct {
	SeriesUID    string
	SeriesNumber string
	Modality     string
	Images       []imageEntry
}

type studyEntry struct {
	StudyUID  string
	StudyID   string
	StudyDate string
	StudyTime string
	Series    []*seriesEntry
}

type patientEntry struct {
	PatientID   string
	PatientName string
	Studies     []*studyEntry
}

// WriteDICOMDIR indexes the generated slices in a DICOMDIR file inside
// outputDir. Slices stay where they are; IMAGE records reference them by
// their path relative to outputDir.
func WriteDICOMDIR(outputDir string, files []GeneratedFile, quiet bool) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to index")
	}

	patients, err := collectHierarchy(outputDir, files)
	if err != nil {
		return err
	}

	dicomdirPath := filepath.Join(outputDir, DICOMDIRName)
	recordTypes, err := writeDICOMDIRFile(dicomdirPath, fileSetID(outputDir), patients)
	if err != nil {
		return err
	}

	// Second pass: patch the offsets with the real byte positions
	if err := updateDICOMDIROffsets(dicomdirPath, recordTypes); err != nil {
		return fmt.Errorf("update DICOMDIR offsets: %w", err)
	}

	if !quiet {
		fmt.Printf("Saved: %s (%d images)\n", dicomdirPath, len(files))
	}
	return nil
}

// collectHierarchy reads every slice header and groups the slices by
// patient, study and series in order of first appearance.
func collectHierarchy(outputDir string, files []GeneratedFile) ([]*patientEntry, error) {
	var patients []*patientEntry
	patientByID := make(map[string]*patientEntry)
	studyByUID := make(map[string]*studyEntry)
	seriesByUID := make(map[string]*seriesEntry)

	for _, file := range files {
		ds, err := dicom.ParseFile(file.Path, nil, dicom.SkipPixelData())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Path, err)
		}

		relPath, err := filepath.Rel(outputDir, file.Path)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", file.Path, err)
		}

		patientID := getStringValue(ds, tag.PatientID)
		patient, ok := patientByID[patientID]
		if !ok {
			patient = &patientEntry{
				PatientID:   patientID,
				PatientName: getStringValue(ds, tag.PatientName),
			}
			patientByID[patientID] = patient
			patients = append(patients, patient)
		}

		studyUID := getStringValue(ds, tag.StudyInstanceUID)
		study, ok := studyByUID[studyUID]
		if !ok {
			study = &studyEntry{
				StudyUID:  studyUID,
				StudyID:   getStringValue(ds, tag.StudyID),
				StudyDate: getStringValue(ds, tag.StudyDate),
				StudyTime: getStringValue(ds, tag.StudyTime),
			}
			studyByUID[studyUID] = study
			patient.Studies = append(patient.Studies, study)
		}

		seriesUID := getStringValue(ds, tag.SeriesInstanceUID)
		series, ok := seriesByUID[seriesUID]
		if !ok {
			series = &seriesEntry{
				SeriesUID:    seriesUID,
				SeriesNumber: getStringValue(ds, tag.SeriesNumber),
				Modality:     getStringValue(ds, tag.Modality),
			}
			seriesByUID[seriesUID] = series
			study.Series = append(study.Series, series)
		}

		series.Images = append(series.Images, imageEntry{
			FileID:         strings.Split(filepath.ToSlash(relPath), "/"),
			InstanceNumber: file.InstanceNumber,
			SOPClassUID:    getStringValue(ds, tag.SOPClassUID),
			SOPInstanceUID: getStringValue(ds, tag.SOPInstanceUID),
		})
	}

	for _, s := range seriesByUID {
		sort.SliceStable(s.Images, func(i, j int) bool {
			return s.Images[i].InstanceNumber < s.Images[j].InstanceNumber
		})
	}
	return patients, nil
}

// getStringValue returns the first string value of a tag, or "".
func getStringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return ""
	}
	if values, ok := elem.Value.GetValue().([]string); ok && len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return strings.Trim(elem.Value.String(), " []")
}

// recordHeader returns the leading elements of a directory record. The
// offsets are written as 0 and patched once the file layout is known.
func recordHeader(recordType string) []*dicom.Element {
	return []*dicom.Element{
		mustNewElement(tag.OffsetOfTheNextDirectoryRecord, []int{0}),
		mustNewElement(tag.RecordInUseFlag, []int{0xFFFF}),
		mustNewElement(tag.OffsetOfReferencedLowerLevelDirectoryEntity, []int{0}),
		mustNewElement(tag.DirectoryRecordType, []string{recordType}),
	}
}

// writeDICOMDIRFile writes the DICOMDIR with zero offsets and returns the
// record types in file order.
// fileSetID derives the DICOMDIR File-set ID from the output directory name.
// The ID is a CS: uppercase letters, digits, underscore and space, at most
// 16 characters. Anything else becomes an underscore.
func fileSetID(outputDir string) string {
	if abs, err := filepath.Abs(outputDir); err == nil {
		outputDir = abs
	}
	name := strings.ToUpper(filepath.Base(outputDir))

	id := []byte(name)
	for i, c := range id {
		switch {
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == ' ':
		default:
			id[i] = '_'
		}
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return string(id)
}

func writeDICOMDIRFile(path, fileSetID string, patients []*patientEntry) ([]string, error) {
	var recordItems [][]*dicom.Element
	var recordTypes []string
	add := func(recordType string, elements ...*dicom.Element) {
		recordItems = append(recordItems, append(recordHeader(recordType), elements...))
		recordTypes = append(recordTypes, recordType)
	}

	for _, patient := range patients {
		add(recordPatient,
			mustNewElement(tag.PatientName, []string{patient.PatientName}),
			mustNewElement(tag.PatientID, []string{patient.PatientID}),
		)
		for _, study := range patient.Studies {
			add(recordStudy,
				mustNewElement(tag.StudyDate, []string{study.StudyDate}),
				mustNewElement(tag.StudyTime, []string{study.StudyTime}),
				mustNewElement(tag.StudyInstanceUID, []string{study.StudyUID}),
				mustNewElement(tag.StudyID, []string{study.StudyID}),
			)
			for _, series := range study.Series {
				add(recordSeries,
					mustNewElement(tag.Modality, []string{series.Modality}),
					mustNewElement(tag.SeriesInstanceUID, []string{series.SeriesUID}),
					mustNewElement(tag.SeriesNumber, []string{series.SeriesNumber}),
				)
				for _, image := range series.Images {
					add(recordImage,
						mustNewElement(tag.ReferencedFileID, image.FileID),
						mustNewElement(tag.ReferencedSOPClassUIDInFile, []string{image.SOPClassUID}),
						mustNewElement(tag.ReferencedSOPInstanceUIDInFile, []string{image.SOPInstanceUID}),
						mustNewElement(tag.ReferencedTransferSyntaxUIDInFile, []string{ExplicitVRLittleEndian}),
					)
				}
			}
		}
	}

	seqElem, err := dicom.NewElement(tag.DirectoryRecordSequence, recordItems)
	if err != nil {
		return nil, fmt.Errorf("create directory record sequence: %w", err)
	}

	ds := dicom.Dataset{
		Elements: []*dicom.Element{
			mustNewElement(tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.1.3.10"}), // Media Storage Directory Storage
			mustNewElement(tag.MediaStorageSOPInstanceUID, []string{util.NewUID()}),
			mustNewElement(tag.TransferSyntaxUID, []string{ExplicitVRLittleEndian}),
			mustNewElement(tag.ImplementationClassUID, []string{util.ImplementationClassUID}),
			mustNewElement(tag.FileSetID, []string{fileSetID}),
			mustNewElement(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, []int{0}),
			mustNewElement(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, []int{0}),
			mustNewElement(tag.FileSetConsistencyFlag, []int{0}),
			seqElem,
		},
	}

	if err := writeDatasetToFile(path, ds); err != nil {
		return nil, fmt.Errorf("write DICOMDIR: %w", err)
	}
	return recordTypes, nil
}

// updateDICOMDIROffsets rewrites the offset fields of a DICOMDIR written
// with zero offsets. recordTypes lists the directory records in file order.
func updateDICOMDIROffsets(path string, recordTypes []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read DICOMDIR: %w", err)
	}

	positions := findDirectoryRecordPositions(data)
	if len(positions) != len(recordTypes) {
		return fmt.Errorf("found %d directory records, expected %d", len(positions), len(recordTypes))
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open file for update: %w", err)
	}
	defer func() { _ = f.Close() }()

	hierarchy := buildHierarchy(recordTypes, positions)

	// Root entity: first and last PATIENT records
	var firstRoot, lastRoot uint32
	for i, recordType := range recordTypes {
		if recordType != recordPatient {
			continue
		}
		if firstRoot == 0 {
			firstRoot = uint32(positions[i])
		}
		lastRoot = uint32(positions[i])
	}
	if pos := findTagPosition(data, 0, 0x0004, 0x1200); pos >= 0 {
		if err := updateUInt32At(f, pos+8, firstRoot); err != nil {
			return fmt.Errorf("update first offset: %w", err)
		}
	}
	if pos := findTagPosition(data, 0, 0x0004, 0x1202); pos >= 0 {
		if err := updateUInt32At(f, pos+8, lastRoot); err != nil {
			return fmt.Errorf("update last offset: %w", err)
		}
	}

	for i, pos := range positions {
		links := hierarchy[i]
		if p := findTagPosition(data, pos, 0x0004, 0x1400); p >= 0 {
			if err := updateUInt32At(f, p+8, links.NextSibling); err != nil {
				return fmt.Errorf("update next offset at record %d: %w", i, err)
			}
		}
		if p := findTagPosition(data, pos, 0x0004, 0x1420); p >= 0 {
			if err := updateUInt32At(f, p+8, links.FirstChild); err != nil {
				return fmt.Errorf("update lower offset at record %d: %w", i, err)
			}
		}
	}

	return f.Close()
}

// findDirectoryRecordPositions returns the byte position of every Item tag
// (FFFE,E000) after the preamble. A DICOMDIR has a single sequence, so each
// item is a directory record.
func findDirectoryRecordPositions(data []byte) []int64 {
	itemTag := []byte{0xFE, 0xFF, 0x00, 0xE0}

	// Skip preamble (128 bytes) + "DICM"
	const searchStart = 132

	var positions []int64
	for i := searchStart; i+4 <= len(data); i++ {
		if bytes.Equal(data[i:i+4], itemTag) {
			positions = append(positions, int64(i))
		}
	}
	return positions
}

// recordLinks holds the offsets to patch into one directory record.
type recordLinks struct {
	NextSibling uint32
	FirstChild  uint32
}

// buildHierarchy links every record to its next sibling and first child.
func buildHierarchy(recordTypes []string, positions []int64) []recordLinks {
	links := make([]recordLinks, len(recordTypes))

	// stack[level] is the open record at that level
	var stack []int
	for i, recordType := range recordTypes {
		level := hierarchyLevel(recordType)
		if level < 0 || level > len(stack) {
			continue
		}

		offset := uint32(positions[i])
		if len(stack) > level {
			links[stack[level]].NextSibling = offset
		} else if level > 0 {
			links[stack[level-1]].FirstChild = offset
		}
		stack = append(stack[:level], i)
	}
	return links
}

// hierarchyLevel returns the level of a record type, PATIENT being 0.
func hierarchyLevel(recordType string) int {
	switch recordType {
	case recordPatient:
		return 0
	case recordStudy:
		return 1
	case recordSeries:
		return 2
	case recordImage:
		return 3
	default:
		return -1
	}
}

// findTagPosition finds the byte position of a tag at or after start,
// searching at most 500 bytes when start is not 0.
func findTagPosition(data []byte, start int64, group, element uint16) int64 {
	tagBytes := make([]byte, 4)
	binary.LittleEndian.PutUint16(tagBytes[0:2], group)
	binary.LittleEndian.PutUint16(tagBytes[2:4], element)

	end := int64(len(data))
	if start > 0 && start+500 < end {
		end = start + 500
	}
	for i := start; i+4 <= end; i++ {
		if bytes.Equal(data[i:i+4], tagBytes) {
			return i
		}
	}
	return -1
}

// updateUInt32At writes a uint32 value at the specified position in the file
func updateUInt32At(f io.WriteSeeker, pos int64, value uint32) error {
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, value)
}
