package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PreviewOptions control how an original is turned into a watermarked preview.
type PreviewOptions struct {
	MaxWidth  uint
	MaxHeight uint
	Quality   int
	Text      string
}

// PreviewResult carries the encoded preview and its final dimensions.
type PreviewResult struct {
	Data   []byte
	Width  int
	Height int
}

// Preview decodes an original, downscales it to fit the bounding box, tiles the
// watermark text across it, and re-encodes as JPEG. PNG originals come out as
// JPEG previews too.
func Preview(original []byte, opts PreviewOptions) (*PreviewResult, error) {
	if len(original) == 0 {
		return nil, fmt.Errorf("original image is empty")
	}
	if opts.MaxWidth == 0 || opts.MaxHeight == 0 {
		return nil, fmt.Errorf("preview bounds are required")
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decoding original: %w", err)
	}

	scaled := resize.Thumbnail(opts.MaxWidth, opts.MaxHeight, src, resize.Lanczos3)

	bounds := scaled.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, scaled, bounds.Min, draw.Src)

	if text := strings.TrimSpace(opts.Text); text != "" {
		stampText(canvas, text)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}

	return &PreviewResult{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// stampText tiles the text across the canvas in staggered rows so any crop of
// the preview still carries at least one stamp.
func stampText(canvas *image.RGBA, text string) {
	face := basicfont.Face7x13
	col := color.RGBA{R: 255, G: 255, B: 255, A: 110}
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
	}

	bounds := canvas.Bounds()
	textWidth := drawer.MeasureString(text).Ceil()
	if textWidth <= 0 {
		return
	}
	stepX := textWidth * 2
	stepY := face.Height * 6

	row := 0
	for y := bounds.Min.Y + face.Height; y < bounds.Max.Y; y += stepY {
		offset := 0
		if row%2 == 1 {
			offset = stepX / 2
		}
		for x := bounds.Min.X - offset; x < bounds.Max.X; x += stepX {
			drawer.Dot = fixed.P(x, y)
			drawer.DrawString(text)
		}
		row++
	}
}
