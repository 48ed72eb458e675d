package tactic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
)

// Categories
const (
	CategoryAttack      = "attack"
	CategoryDefense     = "defense"
	CategoryTransition  = "transition"
	CategorySetPiece    = "set_piece"
	CategoryGoalkeeping = "goalkeeping"

	DefaultCategory = CategoryAttack

	cloneSuffix = " (copy)"
)

var AllCategories = []string{CategoryAttack, CategoryDefense, CategoryTransition, CategorySetPiece, CategoryGoalkeeping}

func IsCategory(c string) bool {
	for _, cat := range AllCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// BlankMetadata is what a new (or cleared) tactic starts with.
func BlankMetadata() canvas.Metadata {
	return canvas.Metadata{Category: DefaultCategory}
}

type Tactic struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"user_id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	IsPublic    bool            `json:"is_public"`
	ImageURL    string          `json:"image_url"`
	Canvas      canvas.Document `json:"canvas_data"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

func (t Tactic) IsOwner(userID string) bool {
	return t.OwnerID != "" && t.OwnerID == userID
}

// CanRead reports whether userID may view (and clone) the tactic.
func (t Tactic) CanRead(userID string) bool {
	return t.IsPublic || t.IsOwner(userID)
}

func (t Tactic) Metadata() canvas.Metadata {
	return canvas.Metadata{
		Title:       t.Title,
		Category:    t.Category,
		Description: t.Description,
		IsPublic:    t.IsPublic,
	}
}

// View is a loaded tactic as presented to a viewer.
type View struct {
	Tactic
	ReadOnly bool `json:"read_only"`
}

// SaveTactic contains the information needed to create or update a Tactic.
// An empty ID creates a new record.
type SaveTactic struct {
	ID          string          `json:"id"`
	Title       string          `json:"title" validate:"notblank,max=200"`
	Category    string          `json:"category" validate:"required,tactic_category"`
	Description string          `json:"description" validate:"max=5000"`
	IsPublic    bool            `json:"is_public"`
	Canvas      canvas.Document `json:"canvas_data"`
}

// NewSaveTactic builds the save payload for the editor's current state.
func NewSaveTactic(id string, meta canvas.Metadata, doc canvas.Document) SaveTactic {
	return SaveTactic{
		ID:          id,
		Title:       meta.Title,
		Category:    meta.Category,
		Description: meta.Description,
		IsPublic:    meta.IsPublic,
		Canvas:      doc,
	}
}

func (st *SaveTactic) Validate(validate *validator.Validate) error {
	st.ID = core.CleanString(st.ID)
	st.Title = core.CleanString(st.Title)
	st.Category = core.CleanString(st.Category, true /* lower */)
	st.Description = core.CleanString(st.Description)
	return validate.Struct(st)
}
