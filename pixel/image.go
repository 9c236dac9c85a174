package pixel

import (
	"image"
	"image/color"
)

// XRGBImage is a 32-bit XRGB8888 image, the format universally accepted
// by primary display planes. Pixels are stored little-endian as
// B, G, R, X; the X byte is ignored by the hardware but kept opaque so
// the image composites correctly with image/draw.
//
// XRGBImage is typically a view over a CPU mapping of scan-out memory,
// so the stride may be larger than 4×width.
type XRGBImage struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent
	// pixels.
	Stride int
}

// NewXRGBImage returns an image with freshly allocated storage.
func NewXRGBImage(w, h int) *XRGBImage {
	return &XRGBImage{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, w*h*4),
		Stride: w * 4,
	}
}

func (p *XRGBImage) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *XRGBImage) Bounds() image.Rectangle {
	return p.Rect
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *XRGBImage) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *XRGBImage) At(x, y int) color.Color {
	if !(image.Point{x, y}).In(p.Rect) {
		return color.Transparent
	}

	i := p.PixOffset(x, y)
	return color.RGBA{
		B: p.Pix[i],
		G: p.Pix[i+1],
		R: p.Pix[i+2],
		A: 0xff,
	}
}

func (p *XRGBImage) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}).In(p.Rect) {
		return
	}

	i := p.PixOffset(x, y)
	v := color.RGBAModel.Convert(c).(color.RGBA)
	p.Pix[i] = v.B
	p.Pix[i+1] = v.G
	p.Pix[i+2] = v.R
	p.Pix[i+3] = 0xff
}

// Clear zeroes the image.
func (p *XRGBImage) Clear() {
	for i := range p.Pix {
		p.Pix[i] = 0x00
	}
}

// Fill floods the image with a single color.
func (p *XRGBImage) Fill(c color.Color) {
	v := color.RGBAModel.Convert(c).(color.RGBA)
	w, h := p.Rect.Dx(), p.Rect.Dy()
	for y := 0; y < h; y++ {
		i := y * p.Stride
		for x := 0; x < w; x++ {
			p.Pix[i] = v.B
			p.Pix[i+1] = v.G
			p.Pix[i+2] = v.R
			p.Pix[i+3] = 0xff
			i += 4
		}
	}
}
