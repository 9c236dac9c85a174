// Package anim paints the demo animation: two quads whose edges sweep
// across the frame once per animation cycle, plus a frame counter.
// Because every frame is derived from the frame number alone, skipped
// frames never desynchronize the animation from the clock.
package anim

import (
	"fmt"
	"image"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/BeatGlow/scanout"
)

const fontSize = 24

// Quads implements scanout.Painter.
type Quads struct {
	font *truetype.Font
}

// NewQuads prepares the painter. The font load can fail, which the
// caller should treat as a content setup failure.
func NewQuads() (*Quads, error) {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("anim: parsing font: %w", err)
	}
	return &Quads{font: f}, nil
}

// Fill paints the animation frame into the buffer.
func (q *Quads) Fill(buf *scanout.Buffer, frameNum int) {
	progress := float64(frameNum) / float64(scanout.AnimFrames)
	splitY := int(float64(buf.Height) * progress)
	splitX := int(float64(buf.Width) * progress)

	// Straight into the mapping, one row at a time: blue below the
	// horizontal split, red right of the vertical one.
	for y := 0; y < buf.Height; y++ {
		var b byte
		if y >= splitY {
			b = 0xff
		}
		row := buf.Pix[y*buf.Stride:]
		for x := 0; x < buf.Width; x++ {
			var r byte
			if x >= splitX {
				r = 0xff
			}
			row[x*4] = b      // B
			row[x*4+1] = 0x00 // G
			row[x*4+2] = r    // R
			row[x*4+3] = 0xff // X
		}
	}

	q.drawCounter(buf, frameNum)
}

func (q *Quads) drawCounter(buf *scanout.Buffer, frameNum int) {
	img := buf.Image()

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(q.font)
	c.SetFontSize(fontSize)
	c.SetDst(img)
	c.SetClip(img.Bounds())
	c.SetSrc(image.White)

	pt := freetype.Pt(16, 16+int(c.PointToFixed(fontSize)>>6))
	if _, err := c.DrawString(fmt.Sprintf("%3d", frameNum), pt); err != nil {
		// The counter is decoration; the frame is still valid.
		return
	}
}
