package rendersvc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
)

func decode(t *testing.T, data []byte) image.Image {
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgb(t *testing.T, img image.Image, x, y int) [3]uint8 {
	t.Helper()
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return [3]uint8{c.R, c.G, c.B}
}

func TestRasterizer_Rasterize(t *testing.T) {
	doc := canvas.NewDocument()
	doc.Lines = append(doc.Lines,
		canvas.Stroke{Tool: canvas.ToolFreehand, Points: []float64{30, 200, 30, 200, 30, 250, 30, 300}, Color: "#000000"},
		canvas.Stroke{Tool: canvas.ToolDashed, Points: []float64{300, 150, 300, 300}, Color: "#facc15"},
		canvas.Stroke{Tool: canvas.ToolArrow, Points: []float64{120, 450, 120, 550}, Color: "#3b82f6"},
	)

	r := NewRasterizer()
	data, err := r.Rasterize(doc)
	require.NoError(t, err)
	img := decode(t, data)

	assert.Equal(t, image.Rect(0, 0, 720, 1440), img.Bounds())

	field := [3]uint8{0x15, 0x80, 0x3d}
	assert.Equal(t, field, rgb(t, img, 80, 300), "field")
	assert.Equal(t, [3]uint8{0xef, 0x44, 0x44}, rgb(t, img, 180, 1300), "player-1")
	assert.Equal(t, [3]uint8{0x3b, 0x82, 0xf6}, rgb(t, img, 540, 500), "player-4")
	assert.Equal(t, [3]uint8{0xff, 0xff, 0xff}, rgb(t, img, 360, 720), "ball")
	assert.Equal(t, [3]uint8{0, 0, 0}, rgb(t, img, 60, 500), "freehand")
	assert.Equal(t, [3]uint8{0x3b, 0x82, 0xf6}, rgb(t, img, 240, 960), "arrow")

	var yellow, green int
	for y := 310; y < 590; y++ {
		switch rgb(t, img, 600, y) {
		case [3]uint8{0xfa, 0xcc, 0x15}:
			yellow++
		case field:
			green++
		}
	}
	assert.NotZero(t, yellow, "dashed line drawn")
	assert.NotZero(t, green, "dashed line has gaps")
}

func TestRasterizer_dotAndEmpty(t *testing.T) {
	doc := canvas.NewDocument()
	doc.Lines = append(doc.Lines, canvas.Stroke{Tool: canvas.ToolFreehand, Points: []float64{40, 150, 40, 150}, Color: "#000000"})

	data, err := NewRasterizer().Rasterize(doc)
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{0, 0, 0}, rgb(t, decode(t, data), 80, 300))

	// activeless, empty document still renders the court and tokens
	data, err = NewRasterizer().Rasterize(canvas.NewDocument())
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{0x15, 0x80, 0x3d}, rgb(t, decode(t, data), 80, 300))
}

func TestPDFExporter_Export(t *testing.T) {
	preview, err := NewRasterizer().Rasterize(canvas.NewDocument())
	require.NoError(t, err)

	e := NewPDFExporter("http://localhost:3000/")
	assert.Equal(t, "http://localhost:3000/tactics/editor?id=abc-123", e.TacticURL("abc-123"))

	var buf bytes.Buffer
	err = e.Export(&buf, tactic.Tactic{
		ID:          "abc-123",
		Title:       "Pressing à 4",
		Category:    tactic.CategoryDefense,
		Description: "Close the passing lanes.\nWinger tucks in.",
	}, preview)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), len(preview)/2)
}

func TestPDFExporter_badPreview(t *testing.T) {
	var buf bytes.Buffer
	err := NewPDFExporter("http://localhost:3000").Export(&buf, tactic.Tactic{ID: "x", Title: "T"}, []byte("not a png"))
	assert.Error(t, err)
}
