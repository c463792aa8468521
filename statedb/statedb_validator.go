package statedb

import (
	"database/sql"

	"github.com/TEENet-io/escrow-go/database"
	"github.com/TEENet-io/escrow-go/merkle"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var _ merkle.Store = (*StateDB)(nil)

func (st *StateDB) IsRevealed(revealKey ethcommon.Hash) (bool, error) {
	query := `SELECT 1 FROM revealed WHERE key = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	var one int
	if err := stmt.QueryRow(hashToStr(revealKey)).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Commit inserts the reveal key and, only if it was not present, overwrites
// the last validated pair. Both writes happen in one transaction.
func (st *StateDB) Commit(revealKey, validationKey ethcommon.Hash, v merkle.Validation) (bool, error) {
	inserted := false
	err := st.stmtCache.WithTx(func(tx *database.Tx) error {
		res, err := tx.Exec(`INSERT OR IGNORE INTO revealed (key) VALUES (?)`, hashToStr(revealKey))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO last_validated (key, idx, secretHash) VALUES (?, ?, ?)`,
			hashToStr(validationKey), v.Index, hashToStr(v.SecretHash)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (st *StateDB) LastValidated(validationKey ethcommon.Hash) (*merkle.Validation, error) {
	query := `SELECT idx, secretHash FROM last_validated WHERE key = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var (
		v          merkle.Validation
		secretHash string
	)
	if err := stmt.QueryRow(hashToStr(validationKey)).Scan(&v.Index, &secretHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	v.SecretHash = strToHash(secretHash)
	return &v, nil
}
