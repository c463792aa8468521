// Package statedb persists escrows, orders and the merkle validator state in
// a sqlite database.
package statedb

import (
	"database/sql"

	"github.com/TEENet-io/escrow-go/database"
	"github.com/TEENet-io/escrow-go/escrow"
	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

type StateDB struct {
	stmtCache *database.StmtCache
}

// NewStateDB creates the tables if needed. The pool is limited to a single
// connection, which serializes writers and keeps ":memory:" databases
// shared.
func NewStateDB(db *sql.DB) (*StateDB, error) {
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(escrowTable + orderTable + fillTable + orderEscrowTable +
		revealedTable + lastValidatedTable + eventTable); err != nil {
		return nil, err
	}

	return &StateDB{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

// Open opens (or creates) the sqlite file at path.
func Open(path string) (*StateDB, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, err
	}
	st, err := NewStateDB(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return st, db, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) EscrowIDForOrder(leg escrow.Leg, orderID ethcommon.Hash) (ethcommon.Hash, bool, error) {
	query := `SELECT escrowId FROM order_escrow WHERE orderId = ? AND leg = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return ethcommon.Hash{}, false, err
	}

	var id string
	if err := stmt.QueryRow(hashToStr(orderID), leg.String()).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, false, nil
		}
		return ethcommon.Hash{}, false, err
	}
	return strToHash(id), true, nil
}

func (st *StateDB) OrderIDForEscrow(escrowID ethcommon.Hash) (ethcommon.Hash, bool, error) {
	query := `SELECT orderId FROM order_escrow WHERE escrowId = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return ethcommon.Hash{}, false, err
	}

	var id string
	if err := stmt.QueryRow(hashToStr(escrowID)).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return ethcommon.Hash{}, false, nil
		}
		return ethcommon.Hash{}, false, err
	}
	return strToHash(id), true, nil
}
