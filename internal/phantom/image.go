package phantom

import (
	"image"
	"image/color"
)

// Image is a single-channel 8-bit slice stored row-major.
type Image struct {
	Rows   int
	Cols   int
	Pixels []uint8
}

// At returns the pixel at row r, column c.
func (m *Image) At(r, c int) uint8 {
	return m.Pixels[r*m.Cols+c]
}

// Max returns the brightest pixel value.
func (m *Image) Max() uint8 {
	var peak uint8
	for _, v := range m.Pixels {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// RegionMax returns the brightest pixel inside the circle of the given radius
// around (cx, cy), all in normalized [-1, 1] coordinates.
func (m *Image) RegionMax(cx, cy, radius float64) uint8 {
	xs := Axis(m.Cols)
	ys := Axis(m.Rows)
	var peak uint8
	for r, y := range ys {
		for c, x := range xs {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			if v := m.At(r, c); v > peak {
				peak = v
			}
		}
	}
	return peak
}

// TumorPeak returns the brightest pixel inside the tumor footprint of p.
func (m *Image) TumorPeak(p Params) uint8 {
	return m.RegionMax(p.TumorX, p.TumorY, p.TumorRadius)
}

// Gray returns the slice as a standard library grayscale image.
func (m *Image) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			g.SetGray(c, r, color.Gray{Y: m.At(r, c)})
		}
	}
	return g
}

// SetFromGray copies g back into the slice. g must have the slice's bounds.
func (m *Image) SetFromGray(g *image.Gray) {
	b := g.Bounds()
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			m.Pixels[r*m.Cols+c] = g.GrayAt(b.Min.X+c, b.Min.Y+r).Y
		}
	}
}
