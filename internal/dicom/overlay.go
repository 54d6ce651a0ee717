package dicom

import (
	"image"
	"image/color"

	"github.com/mrsinham/phantomct/internal/phantom"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawLabel burns text into the top of img, white with a black outline.
func drawLabel(img *phantom.Image, text string) {
	if img.Rows == 0 || img.Cols == 0 || text == "" {
		return
	}
	width, height := img.Cols, img.Rows
	canvas := img.Gray()

	// Step 1: Render text at base size
	face := basicfont.Face7x13
	baseTextWidth := font.MeasureString(face, text).Ceil()
	baseTextHeight := face.Height

	textImg := image.NewAlpha(image.Rect(0, 0, baseTextWidth, baseTextHeight))
	drawer := &font.Drawer{
		Dst:  textImg,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(face.Ascent)},
	}
	drawer.DrawString(text)

	// Step 2: Scale so the label spans about 30% of the width
	scaleFactor := float64(width) * 0.3 / float64(baseTextWidth)
	if scaleFactor < 2.0 {
		scaleFactor = 2.0
	}
	scaledWidth := int(float64(baseTextWidth) * scaleFactor)
	scaledHeight := int(float64(baseTextHeight) * scaleFactor)

	scaled := image.NewAlpha(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), textImg, textImg.Bounds(), draw.Over, nil)

	// Step 3: Center horizontally, small margin from the top edge
	x0 := (width - scaledWidth) / 2
	y0 := max(2, scaledHeight/4)

	set := func(x, y int, v uint8) {
		if x >= 0 && x < width && y >= 0 && y < height {
			canvas.SetGray(x, y, color.Gray{Y: v})
		}
	}

	// Step 4: Black outline
	outline := max(2, scaledHeight/10)
	for sy := 0; sy < scaledHeight; sy++ {
		for sx := 0; sx < scaledWidth; sx++ {
			if scaled.AlphaAt(sx, sy).A == 0 {
				continue
			}
			for dy := -outline; dy <= outline; dy++ {
				for dx := -outline; dx <= outline; dx++ {
					if dx*dx+dy*dy <= outline*outline {
						set(x0+sx+dx, y0+sy+dy, 0)
					}
				}
			}
		}
	}

	// Step 5: Text on top
	for sy := 0; sy < scaledHeight; sy++ {
		for sx := 0; sx < scaledWidth; sx++ {
			if a := scaled.AlphaAt(sx, sy).A; a > 0 {
				set(x0+sx, y0+sy, a)
			}
		}
	}

	img.SetFromGray(canvas)
}
