package rendersvc

import (
	"bytes"
	"math"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
)

const (
	// Scale is the pixel density of rendered previews.
	Scale = 2.0

	fieldColor    = "#15803d"
	markingColor  = "#ffffff"
	outlineColor  = "#111827"
	strokeWidth   = 3.0
	markingWidth  = 2.0
	tokenOutline  = 2.0
	arrowHeadSize = 12.0
	arrowHeadBase = 0.5 // half-width / length ratio of the head
	dashOn        = 12.0
	dashOff       = 8.0
)

// Rasterizer renders canvas documents with fogleman/gg.
// Line widths and dashes are not affected by gg's transformation matrix, so coordinates are scaled by hand.
type Rasterizer struct {
	scale float64
}

var _ tactic.Rasterizer = (*Rasterizer)(nil) // interface compliance check

func NewRasterizer() *Rasterizer {
	return &Rasterizer{scale: Scale}
}

func (r *Rasterizer) s(v float64) float64 {
	return v * r.scale
}

// Size returns the pixel size of the rendered images.
func (r *Rasterizer) Size() (int, int) {
	return int(r.s(canvas.Width)), int(r.s(canvas.Height))
}

// Rasterize draws the court, the strokes in draw order and the tokens on top, and encodes the result as PNG.
func (r *Rasterizer) Rasterize(doc canvas.Document) ([]byte, error) {
	w, h := r.Size()
	dc := gg.NewContext(w, h)

	r.drawCourt(dc)
	for _, s := range doc.Lines {
		r.drawStroke(dc, s)
	}
	for _, t := range doc.Players {
		r.drawToken(dc, t)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encoding png")
	}
	return buf.Bytes(), nil
}

func (r *Rasterizer) drawCourt(dc *gg.Context) {
	dc.SetHexColor(fieldColor)
	dc.Clear()

	const (
		margin   = 10.0
		boxW     = 200.0
		boxH     = 80.0
		goalW    = 60.0
		goalH    = 8.0
		circleR  = 45.0
		spotDist = 55.0
	)
	midX, midY := canvas.Width/2, canvas.Height/2

	dc.SetHexColor(markingColor)
	dc.SetLineWidth(r.s(markingWidth))
	dc.SetDash()

	// outline & halfway line
	dc.DrawRectangle(r.s(margin), r.s(margin), r.s(canvas.Width-2*margin), r.s(canvas.Height-2*margin))
	dc.Stroke()
	dc.DrawLine(r.s(margin), r.s(midY), r.s(canvas.Width-margin), r.s(midY))
	dc.Stroke()

	// centre circle & spot
	dc.DrawCircle(r.s(midX), r.s(midY), r.s(circleR))
	dc.Stroke()
	dc.DrawCircle(r.s(midX), r.s(midY), r.s(2))
	dc.Fill()

	// penalty boxes, goals & spots, top then bottom
	for _, top := range []bool{true, false} {
		boxY, goalY, spotY := margin, margin-goalH, margin+spotDist
		if !top {
			boxY, goalY, spotY = canvas.Height-margin-boxH, canvas.Height-margin, canvas.Height-margin-spotDist
		}
		dc.DrawRectangle(r.s(midX-boxW/2), r.s(boxY), r.s(boxW), r.s(boxH))
		dc.Stroke()
		dc.DrawRectangle(r.s(midX-goalW/2), r.s(goalY), r.s(goalW), r.s(goalH))
		dc.Stroke()
		dc.DrawCircle(r.s(midX), r.s(spotY), r.s(2))
		dc.Fill()
	}
}

func (r *Rasterizer) drawStroke(dc *gg.Context, s canvas.Stroke) {
	if len(s.Points) < 2 {
		return
	}
	dc.SetHexColor(s.Color)
	dc.SetLineWidth(r.s(strokeWidth))
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	if s.Tool == canvas.ToolDashed {
		dc.SetDash(r.s(dashOn), r.s(dashOff))
	} else {
		dc.SetDash()
	}

	start, end := s.Start(), s.End()
	if isDot(s.Points) {
		dc.DrawCircle(r.s(start.X), r.s(start.Y), r.s(strokeWidth/2))
		dc.Fill()
		return
	}

	if s.Tool.Straight() {
		dc.MoveTo(r.s(start.X), r.s(start.Y))
		dc.LineTo(r.s(end.X), r.s(end.Y))
	} else {
		dc.MoveTo(r.s(s.Points[0]), r.s(s.Points[1]))
		for i := 2; i+1 < len(s.Points); i += 2 {
			dc.LineTo(r.s(s.Points[i]), r.s(s.Points[i+1]))
		}
	}
	dc.Stroke()
	dc.SetDash()

	if s.Tool == canvas.ToolArrow {
		r.drawArrowHead(dc, start, end)
	}
}

// isDot reports whether all points coincide.
func isDot(pts []float64) bool {
	for i := 2; i+1 < len(pts); i += 2 {
		if pts[i] != pts[0] || pts[i+1] != pts[1] {
			return false
		}
	}
	return true
}

func (r *Rasterizer) drawArrowHead(dc *gg.Context, from, to canvas.Point) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx, dy = dx/length, dy/length

	size := math.Min(arrowHeadSize, length)
	baseX, baseY := to.X-size*dx, to.Y-size*dy
	wing := size * arrowHeadBase

	dc.MoveTo(r.s(to.X), r.s(to.Y))
	dc.LineTo(r.s(baseX+wing*dy), r.s(baseY-wing*dx))
	dc.LineTo(r.s(baseX-wing*dy), r.s(baseY+wing*dx))
	dc.ClosePath()
	dc.Fill()
}

func (r *Rasterizer) drawToken(dc *gg.Context, t canvas.Token) {
	color := t.Color
	if color == "" {
		color = canvas.TokenColor(t.ID)
	}
	dc.SetDash()
	dc.DrawCircle(r.s(t.X), r.s(t.Y), r.s(t.Radius()))
	dc.SetHexColor(color)
	dc.FillPreserve()
	dc.SetHexColor(outlineColor)
	dc.SetLineWidth(r.s(tokenOutline))
	dc.Stroke()
}
