package modalities

import (
	"fmt"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// maxDSLength is the longest value a Decimal String may hold.
const maxDSLength = 16

// FloatToDS converts a float64 to a DICOM Decimal String.
// The shortest string that parses back to f is used; precision is only
// reduced when that string does not fit in 16 bytes.
func FloatToDS(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for prec := 15; len(s) > maxDSLength && prec > 0; prec-- {
		s = strconv.FormatFloat(f, 'g', prec, 64)
	}
	return s
}
