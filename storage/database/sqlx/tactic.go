package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
)

const tacticColumns = `id, user_id, title, category, description, is_public, image_url, canvas_data, created_at, updated_at`

type tacticRow struct {
	ID          string         `db:"id"`
	OwnerID     string         `db:"user_id"`
	Title       string         `db:"title"`
	Category    string         `db:"category"`
	Description string         `db:"description"`
	IsPublic    bool           `db:"is_public"`
	ImageURL    null.String    `db:"image_url"`
	CanvasData  types.JSONText `db:"canvas_data"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toTacticRow(t tactic.Tactic) (tacticRow, error) {
	data, err := json.Marshal(t.Canvas)
	if err != nil {
		return tacticRow{}, errors.Wrap(err, "marshalling canvas")
	}
	return tacticRow{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Category:    t.Category,
		Description: t.Description,
		IsPublic:    t.IsPublic,
		ImageURL:    null.NewString(t.ImageURL, t.ImageURL != ""),
		CanvasData:  types.JSONText(data),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}, nil
}

func (r tacticRow) tactic() (tactic.Tactic, error) {
	var doc canvas.Document
	if err := r.CanvasData.Unmarshal(&doc); err != nil {
		return tactic.Tactic{}, errors.Wrapf(err, "unmarshalling canvas of tactic %s", r.ID)
	}
	if doc.Lines == nil {
		doc.Lines = []canvas.Stroke{}
	}
	return tactic.Tactic{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Category:    r.Category,
		Description: r.Description,
		IsPublic:    r.IsPublic,
		ImageURL:    r.ImageURL.String,
		Canvas:      doc,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}, nil
}

type tacticRepository struct {
	repository
}

var _ tactic.Repository = (*tacticRepository)(nil) // interface compliance check

func NewTacticRepository(exec core.DBExecutor) *tacticRepository {
	return &tacticRepository{repository{exec: exec}}
}

func (repo tacticRepository) CreateTactic(ctx context.Context, t tactic.Tactic, exec ...core.DBExecutor) (tactic.Tactic, error) {
	t.ID = uuid.New().String()
	row, err := toTacticRow(t)
	if err != nil {
		return tactic.Tactic{}, err
	}

	q := `INSERT INTO tactic (` + tacticColumns + `)
		VALUES (:id, :user_id, :title, :category, :description, :is_public, :image_url, :canvas_data, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return tactic.Tactic{}, errors.Wrap(err, "inserting tactic")
	}
	return t, nil
}

func (repo tacticRepository) GetTacticByID(ctx context.Context, id string, exec ...core.DBExecutor) (tactic.Tactic, error) {
	if _, err := uuid.Parse(id); err != nil {
		return tactic.Tactic{}, tactic.ErrNotFound
	}

	var row tacticRow
	q := `SELECT ` + tacticColumns + ` FROM tactic WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return tactic.Tactic{}, trapNoRowsErr(err, tactic.ErrNotFound, "selecting tactic")
	}
	return row.tactic()
}

// UpdateTactic replaces the metadata, preview and canvas of an existing tactic. Owner and creation time are kept.
func (repo tacticRepository) UpdateTactic(ctx context.Context, t tactic.Tactic, exec ...core.DBExecutor) (tactic.Tactic, error) {
	row, err := toTacticRow(t)
	if err != nil {
		return tactic.Tactic{}, err
	}

	var updated tacticRow
	q := `UPDATE tactic SET title = $2, category = $3, description = $4, is_public = $5, image_url = $6,
		canvas_data = $7, updated_at = $8 WHERE id = $1 RETURNING ` + tacticColumns
	err = sqlx.GetContext(ctx, repo.getExec(exec), &updated, q,
		row.ID, row.Title, row.Category, row.Description, row.IsPublic, row.ImageURL, row.CanvasData, row.UpdatedAt)
	if err != nil {
		return tactic.Tactic{}, trapNoRowsErr(err, tactic.ErrNotFound, "updating tactic")
	}
	return updated.tactic()
}
