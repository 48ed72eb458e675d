package canvas

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
)

var (
	// errors
	ErrReadOnly    = core.NewForbiddenError("canvas is read-only")
	ErrInvalidTool = errors.New("invalid tool")
)

// Metadata holds the editable record fields shown next to the drawing surface.
type Metadata struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// Scene is a point-in-time view of everything visible on the surface, including the in-progress stroke.
type Scene struct {
	Document
	Active *Stroke `json:"active,omitempty"`
}

type drag struct {
	token  int // index in tokens
	offset Point
}

// Editor is the in-memory drawing surface model.
// It is safe for concurrent use, though a single editing session is expected to drive it.
type Editor struct {
	mu sync.Mutex

	strokes []Stroke
	active  *Stroke
	tokens  []Token
	drag    *drag

	tool     Tool
	color    string
	readOnly bool

	meta  Metadata
	blank Metadata
}

// NewEditor returns an empty editor. blank is the metadata restored by Clear.
func NewEditor(blank Metadata) *Editor {
	return &Editor{
		strokes: []Stroke{},
		tokens:  DefaultTokens(),
		tool:    ToolFreehand,
		color:   DefaultColor,
		meta:    blank,
		blank:   blank,
	}
}

// Load replaces the editor content with a persisted document, discarding any gesture in progress.
func (e *Editor) Load(doc Document, meta Metadata, readOnly bool) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	doc = doc.Copy()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.strokes = doc.Lines
	e.tokens = orderTokens(doc.Players)
	e.active = nil
	e.drag = nil
	e.meta = meta
	e.readOnly = readOnly
	return nil
}

// orderTokens returns the tokens in their canonical order.
func orderTokens(tokens []Token) []Token {
	ordered := make([]Token, 0, len(TokenIDs))
	for _, id := range TokenIDs {
		for _, t := range tokens {
			if t.ID == id {
				ordered = append(ordered, t)
				break
			}
		}
	}
	return ordered
}

func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetTool selects the tool used by the next stroke. Allowed in read-only mode.
func (e *Editor) SetTool(tool Tool) error {
	if !tool.IsValid() {
		return errors.Wrapf(ErrInvalidTool, "%q", tool)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tool = tool
	return nil
}

func (e *Editor) Color() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.color
}

// SetColor selects the palette color used by the next stroke. Allowed in read-only mode.
func (e *Editor) SetColor(color string) error {
	if !IsPaletteColor(color) {
		return errors.Errorf("color %q is not in the palette", color)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.color = color
	return nil
}

func (e *Editor) ReadOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readOnly
}

func (e *Editor) Metadata() Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

func (e *Editor) SetMetadata(meta Metadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.readOnly {
		return ErrReadOnly
	}
	e.meta = meta
	return nil
}

// Drawing reports whether a stroke is in progress.
func (e *Editor) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Dragging reports whether a token is captured.
func (e *Editor) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag != nil
}

// PointerDown starts a gesture: a token drag when p hits a token, a new stroke otherwise.
// It is a no-op while another gesture is in progress.
func (e *Editor) PointerDown(p Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	if e.active != nil || e.drag != nil {
		return nil
	}

	// topmost token wins, tokens are drawn in order
	for i := len(e.tokens) - 1; i >= 0; i-- {
		t := e.tokens[i]
		if t.contains(p) {
			e.drag = &drag{token: i, offset: Point{X: t.X - p.X, Y: t.Y - p.Y}}
			return nil
		}
	}

	e.active = &Stroke{
		Tool:   e.tool,
		Points: []float64{p.X, p.Y, p.X, p.Y},
		Color:  e.color,
	}
	return nil
}

// PointerMove extends the active stroke or moves the captured token.
func (e *Editor) PointerMove(p Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}

	switch {
	case e.drag != nil:
		t := &e.tokens[e.drag.token]
		r := t.Radius()
		t.X = Clamp(p.X+e.drag.offset.X, r, Width)
		t.Y = Clamp(p.Y+e.drag.offset.Y, r, Height)
	case e.active != nil:
		if e.active.Tool.Straight() {
			e.active.Points = append(e.active.Points[:2], p.X, p.Y)
		} else {
			e.active.Points = append(e.active.Points, p.X, p.Y)
		}
	}
	return nil
}

// PointerUp ends the current gesture, committing the active stroke as is.
func (e *Editor) PointerUp() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	e.endGesture()
	return nil
}

// PointerLeave behaves as PointerUp.
func (e *Editor) PointerLeave() error {
	return e.PointerUp()
}

func (e *Editor) endGesture() {
	if e.active != nil {
		e.strokes = append(e.strokes, *e.active)
		e.active = nil
	}
	e.drag = nil
}

// Undo removes the most recently committed stroke. Tokens are not affected.
func (e *Editor) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	if n := len(e.strokes); n > 0 {
		e.strokes = e.strokes[:n-1]
	}
	return nil
}

// Clear removes all strokes, resets the tokens to their default layout and blanks the metadata.
func (e *Editor) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	e.strokes = []Stroke{}
	e.active = nil
	e.drag = nil
	e.tokens = DefaultTokens()
	e.meta = e.blank
	return nil
}

// Document returns a copy of the committed document; an in-progress stroke is not part of it.
func (e *Editor) Document() Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document()
}

func (e *Editor) document() Document {
	return Document{Lines: e.strokes, Players: e.tokens}.Copy()
}

// Scene returns a copy of the full visual state.
func (e *Editor) Scene() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Scene{Document: e.document()}
	if e.active != nil {
		active := e.active.copy()
		s.Active = &active
	}
	return s
}

// Flatten returns the scene as a single document, with the active stroke drawn last.
func (s Scene) Flatten() Document {
	doc := s.Document.Copy()
	if s.Active != nil {
		doc.Lines = append(doc.Lines, s.Active.copy())
	}
	return doc
}
