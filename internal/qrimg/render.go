// Package qrimg renders scannable codes as SVG artifacts and stores them on
// disk keyed by code identifier. Rendering builds the QR module matrix with
// boombuler/barcode and emits the vector document through ajstarks/svgo, so
// the artifact scales cleanly at any display size.
package qrimg

import (
	"bytes"
	"errors"
	"image/color"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/boombuler/barcode/qr"
)

// Options controls the visual parameters of a rendered artifact.
type Options struct {
	Size   int    // rendered width/height in pixels
	Margin int    // quiet zone around the code, in modules
	Dark   string // module color, CSS hex
	Light  string // background color, CSS hex
}

// DefaultOptions matches the fixed visual parameters codes are generated
// with: 300px, 2-module quiet zone, branded dark blue on white.
func DefaultOptions() Options {
	return Options{Size: 300, Margin: 2, Dark: "#2c3cee", Light: "#ffffff"}
}

// RenderSVG encodes content as a QR code and returns the SVG document bytes.
// The view box is expressed in modules; the browser scales it to Size.
func RenderSVG(content string, o Options) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("qrimg: content must not be empty")
	}
	if o.Size <= 0 {
		o.Size = 300
	}
	if o.Margin < 0 {
		o.Margin = 0
	}
	if o.Dark == "" {
		o.Dark = "#000000"
	}
	if o.Light == "" {
		o.Light = "#ffffff"
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	bounds := code.Bounds()
	modules := bounds.Dx()
	total := modules + 2*o.Margin

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(o.Size, o.Size, 0, 0, total, total)
	canvas.Rect(0, 0, total, total, "fill:"+o.Light)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if isDark(code.At(x, y)) {
				canvas.Rect(x-bounds.Min.X+o.Margin, y-bounds.Min.Y+o.Margin, 1, 1, "fill:"+o.Dark)
			}
		}
	}
	canvas.End()

	return buf.Bytes(), nil
}

// isDark reports whether a module pixel is a dark module.
func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0 && g == 0 && b == 0
}
