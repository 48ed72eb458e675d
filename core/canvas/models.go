package canvas

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Canvas surface size, in canvas units.
const (
	Width  = 360.0
	Height = 720.0
)

// Tools
const (
	ToolFreehand Tool = "freehand"
	ToolArrow    Tool = "arrow"
	ToolDashed   Tool = "dashed"
)

// Token identities
const (
	TokenPlayer1 = "player-1"
	TokenPlayer2 = "player-2"
	TokenPlayer3 = "player-3"
	TokenPlayer4 = "player-4"
	TokenBall    = "ball"

	PlayerRadius = 15.0
	BallRadius   = 10.0
)

var (
	AllTools = []Tool{ToolFreehand, ToolArrow, ToolDashed}

	// Palette holds the stroke colors a user may pick from, the first one is the default.
	Palette      = []string{"#ffffff", "#000000", "#ef4444", "#3b82f6", "#facc15"}
	DefaultColor = Palette[0]

	tokenColors = map[string]string{
		TokenPlayer1: "#ef4444",
		TokenPlayer2: "#ef4444",
		TokenPlayer3: "#3b82f6",
		TokenPlayer4: "#3b82f6",
		TokenBall:    "#ffffff",
	}

	// TokenIDs lists the token identities in their render (and serialization) order.
	TokenIDs = []string{TokenPlayer1, TokenPlayer2, TokenPlayer3, TokenPlayer4, TokenBall}

	// errors
	ErrInvalidDocument = errors.New("invalid canvas document")
)

type Tool string

func (t Tool) IsValid() bool {
	for _, tool := range AllTools {
		if t == tool {
			return true
		}
	}
	return false
}

// Straight reports whether the tool draws a single segment from press to release point.
func (t Tool) Straight() bool {
	return t == ToolArrow || t == ToolDashed
}

func IsPaletteColor(c string) bool {
	for _, pc := range Palette {
		if c == pc {
			return true
		}
	}
	return false
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one shape drawn in a single pointer gesture.
// Points is the flat [x0, y0, x1, y1, ...] sequence, in drawing order.
type Stroke struct {
	Tool   Tool      `json:"tool" validate:"canvas_tool"`
	Points []float64 `json:"points" validate:"min=2"`
	Color  string    `json:"color" validate:"canvas_color"`
}

func (s Stroke) copy() Stroke {
	pts := make([]float64, len(s.Points))
	copy(pts, s.Points)
	s.Points = pts
	return s
}

// Start returns the first point of the stroke.
func (s Stroke) Start() Point {
	if len(s.Points) < 2 {
		return Point{}
	}
	return Point{X: s.Points[0], Y: s.Points[1]}
}

// End returns the last point of the stroke.
func (s Stroke) End() Point {
	n := len(s.Points)
	if n < 2 {
		return Point{}
	}
	return Point{X: s.Points[n-2], Y: s.Points[n-1]}
}

// Token is one of the fixed draggable markers.
type Token struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

func (t Token) Radius() float64 {
	return TokenRadius(t.ID)
}

func (t Token) contains(p Point) bool {
	dx, dy := p.X-t.X, p.Y-t.Y
	r := t.Radius()
	return dx*dx+dy*dy <= r*r
}

func TokenRadius(id string) float64 {
	if id == TokenBall {
		return BallRadius
	}
	return PlayerRadius
}

func TokenColor(id string) string {
	return tokenColors[id]
}

// DefaultTokens returns the initial layout: two players near each baseline, ball at the centre.
func DefaultTokens() []Token {
	pos := map[string]Point{
		TokenPlayer1: {90, 650},
		TokenPlayer2: {270, 650},
		TokenPlayer3: {90, 250},
		TokenPlayer4: {270, 250},
		TokenBall:    {180, 360},
	}
	tokens := make([]Token, 0, len(TokenIDs))
	for _, id := range TokenIDs {
		p := pos[id]
		tokens = append(tokens, Token{ID: id, X: p.X, Y: p.Y, Color: TokenColor(id)})
	}
	return tokens
}

// Clamp keeps a token center far enough from the edges for its full radius to stay on the canvas.
func Clamp(coord, radius, dimension float64) float64 {
	return math.Max(radius, math.Min(coord, dimension-radius))
}

// Document is the persisted drawing: strokes in z-order plus the token positions.
type Document struct {
	Lines   []Stroke `json:"lines" validate:"dive"`
	Players []Token  `json:"players"`
}

// NewDocument returns an empty drawing with the tokens at their default positions.
func NewDocument() Document {
	return Document{
		Lines:   []Stroke{},
		Players: DefaultTokens(),
	}
}

// Copy returns a deep copy of the document.
func (d Document) Copy() Document {
	lines := make([]Stroke, 0, len(d.Lines))
	for _, s := range d.Lines {
		lines = append(lines, s.copy())
	}
	players := make([]Token, len(d.Players))
	copy(players, d.Players)
	return Document{Lines: lines, Players: players}
}

// Validate checks the document shape: known tools, whole points, exactly the 5 known tokens on the canvas.
func (d Document) Validate() error {
	for i, s := range d.Lines {
		if err := s.validate(); err != nil {
			return errors.Wrapf(ErrInvalidDocument, "line %d: %v", i, err)
		}
	}
	if err := validateTokens(d.Players); err != nil {
		return errors.Wrapf(ErrInvalidDocument, "players: %v", err)
	}
	return nil
}

func (s Stroke) validate() error {
	if !s.Tool.IsValid() {
		return fmt.Errorf("unknown tool %q", s.Tool)
	}
	if len(s.Points) < 2 || len(s.Points)%2 != 0 {
		return fmt.Errorf("points must be (x, y) pairs, got %d values", len(s.Points))
	}
	for _, v := range s.Points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("points must be finite")
		}
	}
	if s.Color == "" {
		return errors.New("missing color")
	}
	return nil
}

func validateTokens(tokens []Token) error {
	if len(tokens) != len(TokenIDs) {
		return fmt.Errorf("expected %d tokens, got %d", len(TokenIDs), len(tokens))
	}
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if _, ok := tokenColors[t.ID]; !ok {
			return fmt.Errorf("unknown token %q", t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate token %q", t.ID)
		}
		seen[t.ID] = true
		if t.Color != TokenColor(t.ID) {
			return fmt.Errorf("token %q must be %s", t.ID, TokenColor(t.ID))
		}

		r := t.Radius()
		if !(t.X >= r && t.X <= Width-r && t.Y >= r && t.Y <= Height-r) {
			return fmt.Errorf("token %q out of bounds", t.ID)
		}
	}
	return nil
}
