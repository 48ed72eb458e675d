package inmemdb

import (
	"sync"

	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
)

type (
	// DB is a process-local store used by tests and DB-less debug runs.
	DB struct {
		user   *userTable
		tactic *tacticTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	tacticTable struct {
		sync.RWMutex
		table map[string]*tactic.Tactic
	}
)

func Open() *DB {
	return &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		tactic: &tacticTable{table: make(map[string]*tactic.Tactic)},
	}
}

// Reset empties all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.tactic.Lock()
	db.tactic.table = make(map[string]*tactic.Tactic)
	db.tactic.Unlock()
}
