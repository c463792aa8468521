package statedb

import (
	"database/sql"

	"github.com/TEENet-io/escrow-go/database"
	"github.com/TEENet-io/escrow-go/escrow"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	insertEscrowQuery      = `INSERT INTO escrow (` + escrowParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	replaceEscrowQuery     = `INSERT OR REPLACE INTO escrow (` + escrowParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertOrderEscrowQuery = `INSERT INTO order_escrow (orderId, leg, escrowId) VALUES (?, ?, ?)`
)

// SaveNewEscrow records a freshly created escrow: the order to escrow lookup
// and the escrow row are written in one transaction, so a failure leaves
// neither behind. It fails if the order already has an escrow on that leg
// or the escrow id is taken.
func (st *StateDB) SaveNewEscrow(e escrow.Snapshot) error {
	s, err := (&sqlEscrow{}).encode(&e)
	if err != nil {
		return err
	}

	return st.stmtCache.WithTx(func(tx *database.Tx) error {
		if _, err := tx.Exec(insertOrderEscrowQuery,
			hashToStr(e.Immutables.OrderHash), e.Leg.String(), hashToStr(e.ID)); err != nil {
			return err
		}
		_, err := tx.Exec(insertEscrowQuery, s.values()...)
		return err
	})
}

// SaveEscrow inserts or overwrites the escrow row.
func (st *StateDB) SaveEscrow(e escrow.Snapshot) error {
	s, err := (&sqlEscrow{}).encode(&e)
	if err != nil {
		return err
	}

	stmt, err := st.stmtCache.Prepare(replaceEscrowQuery)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(s.values()...)
	return err
}

func (st *StateDB) GetEscrow(id ethcommon.Hash) (*escrow.Snapshot, bool, error) {
	query := `SELECT` + escrowParamList + `FROM escrow WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	s := &sqlEscrow{}
	if err := stmt.QueryRow(hashToStr(id)).Scan(s.fields()...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	e, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// GetEscrowsByStatus returns the escrows with the given status.
func (st *StateDB) GetEscrowsByStatus(status escrow.Status) ([]*escrow.Snapshot, error) {
	query := `SELECT` + escrowParamList + `FROM escrow WHERE status = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []*escrow.Snapshot
	for rows.Next() {
		s := &sqlEscrow{}
		if err := rows.Scan(s.fields()...); err != nil {
			return nil, err
		}
		e, err := s.decode()
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, e)
	}
	return escrows, rows.Err()
}
