package core

import (
	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is anything a repository can run queries with: *sqlx.DB or *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	DB interface {
		DBExecutor

		Beginx() (*sqlx.Tx, error)
		Close() error
	}
)
