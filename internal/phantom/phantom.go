// Package phantom synthesizes the pixel field of a mock CT brain with a tumor.
//
// The field is a closed-form function of normalized in-plane coordinates
// (both axes span [-1, 1]) and of the slice index within the series:
// a radial background blob centered on the origin plus an off-center tumor
// blob whose strength fades linearly away from the middle slice.
package phantom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params holds the shape parameters of the phantom.
type Params struct {
	// Background: exp(-BackgroundSpread*r²)*BackgroundPeak + BackgroundFloor
	BackgroundSpread float64
	BackgroundPeak   float64
	BackgroundFloor  float64

	// Tumor: gaussian of TumorRadius around (TumorX, TumorY), scaled by TumorPeak
	TumorX      float64
	TumorY      float64
	TumorRadius float64
	TumorPeak   float64

	// FalloffRate controls how fast the tumor fades away from the center slice.
	FalloffRate float64

	MinIntensity float64
	MaxIntensity float64
}

// DefaultParams returns the parameters of the reference brain tumor phantom.
func DefaultParams() Params {
	return Params{
		BackgroundSpread: 3,
		BackgroundPeak:   40,
		BackgroundFloor:  20, // 20-60 HU-ish
		TumorX:           0.2,
		TumorY:           -0.1,
		TumorRadius:      0.25,
		TumorPeak:        120,
		FalloffRate:      1.2,
		MinIntensity:     0,
		MaxIntensity:     255,
	}
}

// Validate checks that the parameters describe a usable phantom.
func (p Params) Validate() error {
	if p.TumorRadius <= 0 {
		return fmt.Errorf("tumor radius must be > 0, got %g", p.TumorRadius)
	}
	if p.MaxIntensity < p.MinIntensity {
		return fmt.Errorf("intensity range [%g, %g] is empty", p.MinIntensity, p.MaxIntensity)
	}
	if p.MinIntensity < 0 || p.MaxIntensity > 255 {
		return fmt.Errorf("intensity range [%g, %g] does not fit in 8 bits", p.MinIntensity, p.MaxIntensity)
	}
	return nil
}

// TumorStrength returns the tumor scale factor for slice index of numSlices.
//
// It is 1 at the center of the series and decreases linearly with the
// normalized distance from the center, clamped at 0.
func (p Params) TumorStrength(index, numSlices int) float64 {
	if numSlices <= 1 {
		return 1
	}
	center := float64(numSlices-1) / 2
	zRel := math.Abs(float64(index)-center) / center
	return math.Max(0, 1-zRel*p.FalloffRate)
}

// Axis returns n evenly spaced samples over [-1, 1].
func Axis(n int) []float64 {
	axis := make([]float64, n)
	if n == 1 {
		// linspace with a single sample keeps the start point
		axis[0] = -1
		return axis
	}
	return floats.Span(axis, -1, 1)
}

// Field evaluates the unclipped intensity field of one slice.
// Element (r, c) is sampled at (x[c], y[r]).
func (p Params) Field(rows, cols, index, numSlices int) *mat.Dense {
	xs := Axis(cols)
	ys := Axis(rows)
	strength := p.TumorStrength(index, numSlices) * p.TumorPeak
	twoSigmaSq := 2 * p.TumorRadius * p.TumorRadius

	field := mat.NewDense(rows, cols, nil)
	field.Apply(func(r, c int, _ float64) float64 {
		x, y := xs[c], ys[r]
		brain := math.Exp(-p.BackgroundSpread*(x*x+y*y))*p.BackgroundPeak + p.BackgroundFloor

		dx, dy := x-p.TumorX, y-p.TumorY
		tumor := math.Exp(-(dx*dx+dy*dy)/twoSigmaSq) * strength

		return brain + tumor
	}, field)
	return field
}

// Synthesize returns the quantized 8-bit image of slice index.
func (p Params) Synthesize(rows, cols, index, numSlices int) (*Image, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}
	if numSlices <= 0 {
		return nil, fmt.Errorf("number of slices must be > 0, got %d", numSlices)
	}
	if index < 0 || index >= numSlices {
		return nil, fmt.Errorf("slice index %d out of range [0, %d)", index, numSlices)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	field := p.Field(rows, cols, index, numSlices)
	img := &Image{
		Rows:   rows,
		Cols:   cols,
		Pixels: make([]uint8, rows*cols),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			img.Pixels[r*cols+c] = p.quantize(field.At(r, c))
		}
	}
	return img, nil
}

// quantize saturates v to the intensity range and truncates it to a byte.
func (p Params) quantize(v float64) uint8 {
	if math.IsNaN(v) {
		return uint8(p.MinIntensity)
	}
	clamped := math.Max(p.MinIntensity, math.Min(p.MaxIntensity, v))
	return uint8(clamped)
}

// Synthesize renders slice index with the default phantom parameters.
func Synthesize(rows, cols, index, numSlices int) (*Image, error) {
	return DefaultParams().Synthesize(rows, cols, index, numSlices)
}
