// Package util provides identifiers and tag-override helpers for phantom generation.
package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagScope represents the DICOM hierarchy level a tag belongs to.
type TagScope int

const (
	// ScopePatient tags are identical across the run.
	ScopePatient TagScope = iota
	// ScopeStudy tags describe the study.
	ScopeStudy
	// ScopeSeries tags describe the series.
	ScopeSeries
	// ScopeImage tags could vary per slice.
	ScopeImage
)

// String returns the string representation of a TagScope.
func (s TagScope) String() string {
	switch s {
	case ScopePatient:
		return "Patient"
	case ScopeStudy:
		return "Study"
	case ScopeSeries:
		return "Series"
	case ScopeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// TagInfo describes a tag that can be overridden from the command line.
type TagInfo struct {
	Name  string
	Tag   tag.Tag
	Scope TagScope
}

// overridableTags lists the descriptive tags users may set with --tag.
// Identifiers, geometry and pixel description tags are derived from the
// series and are intentionally absent.
var overridableTags = []TagInfo{
	{Name: "PatientName", Tag: tag.PatientName, Scope: ScopePatient},
	{Name: "PatientID", Tag: tag.PatientID, Scope: ScopePatient},
	{Name: "PatientBirthDate", Tag: tag.PatientBirthDate, Scope: ScopePatient},
	{Name: "PatientSex", Tag: tag.PatientSex, Scope: ScopePatient},

	{Name: "StudyDescription", Tag: tag.StudyDescription, Scope: ScopeStudy},
	{Name: "StudyID", Tag: tag.StudyID, Scope: ScopeStudy},
	{Name: "AccessionNumber", Tag: tag.AccessionNumber, Scope: ScopeStudy},
	{Name: "InstitutionName", Tag: tag.InstitutionName, Scope: ScopeStudy},
	{Name: "ReferringPhysicianName", Tag: tag.ReferringPhysicianName, Scope: ScopeStudy},

	{Name: "SeriesDescription", Tag: tag.SeriesDescription, Scope: ScopeSeries},
	{Name: "BodyPartExamined", Tag: tag.BodyPartExamined, Scope: ScopeSeries},
	{Name: "ProtocolName", Tag: tag.ProtocolName, Scope: ScopeSeries},
	{Name: "Manufacturer", Tag: tag.Manufacturer, Scope: ScopeSeries},
	{Name: "ManufacturerModelName", Tag: tag.ManufacturerModelName, Scope: ScopeSeries},

	{Name: "WindowCenter", Tag: tag.WindowCenter, Scope: ScopeImage},
	{Name: "WindowWidth", Tag: tag.WindowWidth, Scope: ScopeImage},
}

// tagRegistry maps lowercase tag names to their TagInfo.
var tagRegistry = func() map[string]TagInfo {
	m := make(map[string]TagInfo, len(overridableTags))
	for _, info := range overridableTags {
		m[strings.ToLower(info.Name)] = info
	}
	return m
}()

// GetTagByName returns TagInfo for a tag name, ignoring case.
// Unknown names get an error suggesting the closest known name.
func GetTagByName(name string) (TagInfo, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if info, ok := tagRegistry[normalized]; ok {
		return info, nil
	}

	if suggestion := closestTagName(normalized); suggestion != "" {
		return TagInfo{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, suggestion)
	}
	return TagInfo{}, fmt.Errorf("unknown tag %q", name)
}

// SupportedTagNames returns the overridable tag names, sorted.
func SupportedTagNames() []string {
	names := make([]string, 0, len(overridableTags))
	for _, info := range overridableTags {
		names = append(names, info.Name)
	}
	sort.Strings(names)
	return names
}

// closestTagName returns the registered name nearest to input, or "" when
// nothing is within 5 edits.
func closestTagName(input string) string {
	const maxDistance = 5
	best, bestDistance := "", maxDistance+1
	for _, info := range overridableTags {
		if d := editDistance(input, strings.ToLower(info.Name)); d < bestDistance {
			best, bestDistance = info.Name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// TagOverride is a single parsed --tag flag.
type TagOverride struct {
	Info  TagInfo
	Value string
}

// ParsedTags holds user tag overrides in the order they were given.
// A later override of the same tag replaces the earlier one.
type ParsedTags []TagOverride

// Get returns the override value for a tag name.
func (p ParsedTags) Get(name string) (string, bool) {
	info, err := GetTagByName(name)
	if err != nil {
		return "", false
	}
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Info.Tag == info.Tag {
			return p[i].Value, true
		}
	}
	return "", false
}

// Map returns the overrides keyed by canonical tag name.
func (p ParsedTags) Map() map[string]string {
	if len(p) == 0 {
		return nil
	}
	m := make(map[string]string, len(p))
	for _, o := range p {
		m[o.Info.Name] = o.Value
	}
	return m
}

// ParseTagFlags parses "Name=Value" strings into overrides.
func ParseTagFlags(flags []string) (ParsedTags, error) {
	var parsed ParsedTags
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid tag %q: expected Name=Value", f)
		}
		info, err := GetTagByName(name)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, TagOverride{Info: info, Value: strings.TrimSpace(value)})
	}
	return parsed, nil
}

// ParseTagMap parses overrides from a name→value map (config files).
// Names are applied in sorted order so the result is stable.
func ParseTagMap(m map[string]string) (ParsedTags, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	flags := make([]string, 0, len(names))
	for _, name := range names {
		flags = append(flags, name+"="+m[name])
	}
	return ParseTagFlags(flags)
}
