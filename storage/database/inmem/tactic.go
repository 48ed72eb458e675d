package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/tactic"
)

type tacticRepository struct {
	db *tacticTable
}

var _ tactic.Repository = (*tacticRepository)(nil) // interface compliance check

func NewTacticRepository(db *DB) *tacticRepository {
	return &tacticRepository{db: db.tactic}
}

// store keeps its own copy of the canvas so callers cannot alter stored documents.
func (repo *tacticRepository) store(t tactic.Tactic) tactic.Tactic {
	t.Canvas = t.Canvas.Copy()
	stored := t
	repo.db.table[t.ID] = &stored
	t.Canvas = t.Canvas.Copy()
	return t
}

func (repo *tacticRepository) CreateTactic(_ context.Context, t tactic.Tactic, _ ...core.DBExecutor) (tactic.Tactic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	return repo.store(t), nil
}

func (repo *tacticRepository) GetTacticByID(_ context.Context, id string, _ ...core.DBExecutor) (tactic.Tactic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		found := *t
		found.Canvas = t.Canvas.Copy()
		return found, nil
	}
	return tactic.Tactic{}, tactic.ErrNotFound
}

func (repo *tacticRepository) UpdateTactic(_ context.Context, t tactic.Tactic, _ ...core.DBExecutor) (tactic.Tactic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[t.ID]
	if !ok {
		return tactic.Tactic{}, tactic.ErrNotFound
	}
	t.OwnerID = orig.OwnerID
	t.CreatedAt = orig.CreatedAt
	return repo.store(t), nil
}
