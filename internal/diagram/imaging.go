package diagram

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/fogleman/gg"

	"github.com/spherical/docmark/internal/domain"
)

// Crop cuts a normalized bounding box out of a PNG-encoded page image.
func Crop(pageImage []byte, box domain.BoundingBox) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pageImage))
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	x1 := bounds.Min.X + int(box.X1*float64(w))
	y1 := bounds.Min.Y + int(box.Y1*float64(h))
	x2 := bounds.Min.X + int(box.X2*float64(w))
	y2 := bounds.Min.Y + int(box.Y2*float64(h))
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("bbox %s collapses to an empty region at %dx%d", box, w, h)
	}

	rect := image.Rect(x1, y1, x2, y2).Intersect(bounds)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// OverlayGrid draws a labeled coordinate grid at 10% increments over a page
// image, aiding the model's spatial estimation during detection.
func OverlayGrid(pageImage []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pageImage))
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}

	dc := gg.NewContextForImage(img)
	w := float64(dc.Width())
	h := float64(dc.Height())

	dc.SetRGBA(0.9, 0.1, 0.1, 0.55)
	dc.SetLineWidth(1)
	for i := 1; i < 10; i++ {
		f := float64(i) / 10
		dc.DrawLine(f*w, 0, f*w, h)
		dc.DrawLine(0, f*h, w, f*h)
	}
	dc.Stroke()

	for i := 1; i < 10; i++ {
		f := float64(i) / 10
		label := fmt.Sprintf("%.1f", f)
		dc.DrawString(label, f*w+3, 13)
		dc.DrawString(label, 3, f*h-3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode grid overlay: %w", err)
	}
	return buf.Bytes(), nil
}
