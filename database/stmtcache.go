package database

import (
	"database/sql"
	"sync"
)

// StmtCache caches prepared statements keyed by their query string.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) DB() *sql.DB {
	return sc.db
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	cached, _ := sc.m.Load(query)
	if cached == nil {
		stmt, err := sc.db.Prepare(query)
		if err != nil {
			return nil, err
		}
		sc.m.Store(query, stmt)
		cached = stmt
	}
	return cached.(*sql.Stmt), nil
}

func (sc *StmtCache) MustPrepare(query string) *sql.Stmt {
	stmt, err := sc.Prepare(query)
	if err != nil {
		panic(err)
	}
	return stmt
}

func (sc *StmtCache) Clear() {
	sc.m.Range(func(k, v interface{}) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}

// Tx hands out statements bound to one transaction.
type Tx struct {
	tx *sql.Tx
	sc *StmtCache
}

// Prepare never asks the pool for another connection, so it is safe with a
// single-connection database.
func (t *Tx) Prepare(query string) (*sql.Stmt, error) {
	if cached, ok := t.sc.m.Load(query); ok {
		return t.tx.Stmt(cached.(*sql.Stmt)), nil
	}
	return t.tx.Prepare(query)
}

func (t *Tx) Exec(query string, args ...interface{}) (sql.Result, error) {
	stmt, err := t.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Exec(args...)
}

// WithTx runs fn in a transaction. The transaction is committed if fn
// returns nil and rolled back otherwise.
func (sc *StmtCache) WithTx(fn func(tx *Tx) error) error {
	sqlTx, err := sc.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(&Tx{tx: sqlTx, sc: sc}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}
