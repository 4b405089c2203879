package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fillvox/internal/form"
)

func whitePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func inked(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if cr, cg, cb, _ := img.At(x, y).RGBA(); cr != 0xffff || cg != 0xffff || cb != 0xffff {
				n++
			}
		}
	}
	return n
}

func str(s string) *string { return &s }

func TestRender_PlacesMappedAndStacksTheRest(t *testing.T) {
	dir := t.TempDir()
	src := whitePNG(t, dir, 400, 300)

	schema := form.NewFlat(
		form.Field{Label: "Full Name", Value: str("Jane Doe")},
		form.Field{Label: "Email", Value: str("jane@example.com")},
		form.Field{Label: "Fax"},
	)
	coords := Coordinates{"Full Name": {X: 200, Y: 200}}

	out, err := NewAnnotator().Render(src, schema, coords)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan_filled.png"), out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())
	// mapped value sits on its baseline at (200, 200)
	assert.Positive(t, inked(img, image.Rect(200, 188, 280, 203)))
	// unmapped value is on the first margin line
	assert.Positive(t, inked(img, image.Rect(10, 10, 200, 26)))
	// nothing else
	assert.Zero(t, inked(img, image.Rect(0, 40, 190, 180)))
}

func TestRender_OutDirAndErrors(t *testing.T) {
	dir := t.TempDir()
	src := whitePNG(t, dir, 50, 50)

	a := NewAnnotator()
	a.OutDir = t.TempDir()
	out, err := a.Render(src, form.NewFlat(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.OutDir, filepath.Dir(out))

	notImage := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o644))
	_, err = a.Render(notImage, form.NewFlat(), nil)
	assert.Error(t, err)
}

func TestCoordinates_RoundTripIsHandEditable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field_coordinates.json")
	c := Coordinates{"Full Name": {X: 120, Y: 88}, "Email": {X: 120, Y: 140}}

	require.NoError(t, SaveCoordinates(path, c))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \"Email\": {\n    \"x\": 120,"))

	got, err := LoadCoordinates(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadCoordinates_Missing(t *testing.T) {
	_, err := LoadCoordinates(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
