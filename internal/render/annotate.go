package render

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"fillvox/internal/form"
)

// Annotator writes field values onto a copy of the form image. Fields with
// a coordinate are drawn there; the rest are listed down the left margin.
type Annotator struct {
	Face   font.Face
	Ink    color.Color
	Margin int

	// OutDir defaults to the directory of the source image.
	OutDir string
}

func NewAnnotator() *Annotator {
	return &Annotator{
		Face:   basicfont.Face7x13,
		Ink:    color.RGBA{R: 0x10, G: 0x30, B: 0xc0, A: 0xff},
		Margin: 10,
	}
}

// Render returns the path of the written PNG.
func (a *Annotator) Render(imagePath string, schema *form.Schema, coords Coordinates) (string, error) {
	src, err := decode(imagePath)
	if err != nil {
		return "", err
	}

	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(a.Ink), Face: a.Face}
	lineHeight := a.Face.Metrics().Height.Ceil() + 2
	y := b.Min.Y + a.Margin + a.Face.Metrics().Ascent.Ceil()

	drawn, stacked := 0, 0
	for _, f := range schema.Fields() {
		if f.Value == nil || *f.Value == "" {
			continue
		}
		v := oneLine(*f.Value)

		if p, ok := coords[f.Label]; ok {
			d.Dot = fixed.P(b.Min.X+p.X, b.Min.Y+p.Y)
			d.DrawString(v)
			drawn++
			continue
		}

		if y > b.Max.Y {
			log.Warn("Out of margin space, value not drawn", "field", f.Label)
			continue
		}
		d.Dot = fixed.P(b.Min.X+a.Margin, y)
		d.DrawString(f.Label + ": " + v)
		y += lineHeight
		stacked++
	}

	out := a.outPath(imagePath)
	if err := writePNG(out, dst); err != nil {
		return "", err
	}

	log.Info("Rendered filled form", "path", out, "placed", drawn, "margin", stacked)
	return out, nil
}

func (a *Annotator) outPath(imagePath string) string {
	dir := a.OutDir
	if dir == "" {
		dir = filepath.Dir(imagePath)
	}
	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	return filepath.Join(dir, base+"_filled.png")
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	log.Debug("Decoded form image", "format", format, "size", img.Bounds().Size())
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
