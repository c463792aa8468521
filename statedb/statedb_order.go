package statedb

import (
	"database/sql"
	"fmt"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/database"
	"github.com/TEENet-io/escrow-go/merkle"
	"github.com/TEENet-io/escrow-go/partialfill"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SaveOrder writes the order row together with all of its fills in one
// transaction.
func (st *StateDB) SaveOrder(o partialfill.Snapshot) error {
	return st.stmtCache.WithTx(func(tx *database.Tx) error {
		query := `INSERT OR REPLACE INTO orders (` + orderParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.Exec(query,
			hashToStr(o.ID), uint64ToStr(o.Total), uint64ToStr(o.Remaining), o.Parts,
			ethcommon.Bytes2Hex(o.Root[:]), o.FillCount, o.Completed,
		); err != nil {
			return err
		}

		query = `INSERT OR REPLACE INTO fills (` + fillParamList + `) VALUES (?, ?, ?, ?, ?, ?)`
		for _, f := range o.Fills {
			if _, err := tx.Exec(query,
				hashToStr(o.ID), f.Index, uint64ToStr(f.Amount), uint64ToStr(f.Timestamp),
				f.Filler.String(), uint64ToStr(f.Cumulative),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

type sqlOrder struct {
	ID        string
	Total     string
	Remaining string
	Parts     uint32
	Root      string
	FillCount uint32
	Completed bool
}

func (s *sqlOrder) fields() []interface{} {
	return []interface{}{&s.ID, &s.Total, &s.Remaining, &s.Parts, &s.Root, &s.FillCount, &s.Completed}
}

// decode returns the order without its fills.
func (s *sqlOrder) decode() (*partialfill.Snapshot, error) {
	total, err := strToUint64(s.Total)
	if err != nil {
		return nil, err
	}
	remaining, err := strToUint64(s.Remaining)
	if err != nil {
		return nil, err
	}
	rootBytes := ethcommon.Hex2Bytes(s.Root)
	if len(rootBytes) != merkle.TruncatedRootSize {
		return nil, fmt.Errorf("corrupted root of order %s", s.ID)
	}

	o := &partialfill.Snapshot{
		ID:        strToHash(s.ID),
		Total:     total,
		Remaining: remaining,
		Parts:     s.Parts,
		FillCount: s.FillCount,
		Completed: s.Completed,
	}
	copy(o.Root[:], rootBytes)
	return o, nil
}

func (st *StateDB) GetOrder(id ethcommon.Hash) (*partialfill.Snapshot, bool, error) {
	query := `SELECT` + orderParamList + `FROM orders WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	s := &sqlOrder{}
	if err := stmt.QueryRow(hashToStr(id)).Scan(s.fields()...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	o, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	if o.Fills, err = st.GetFills(id); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// GetOrders returns every stored order with its fills.
func (st *StateDB) GetOrders() ([]*partialfill.Snapshot, error) {
	query := `SELECT` + orderParamList + `FROM orders ORDER BY id`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}

	var orders []*partialfill.Snapshot
	for rows.Next() {
		s := &sqlOrder{}
		if err := rows.Scan(s.fields()...); err != nil {
			rows.Close()
			return nil, err
		}
		o, err := s.decode()
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	err = rows.Err()
	// the single connection must be released before the fills are read
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, o := range orders {
		if o.Fills, err = st.GetFills(o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetFills returns the fills of an order ordered by index.
func (st *StateDB) GetFills(orderID ethcommon.Hash) ([]partialfill.Fill, error) {
	query := `SELECT idx, amount, timestamp, filler, cumulative FROM fills WHERE orderId = ? ORDER BY idx`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(hashToStr(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fills := []partialfill.Fill{}
	for rows.Next() {
		var (
			f                                partialfill.Fill
			amount, timestamp, filler, cumul string
		)
		if err := rows.Scan(&f.Index, &amount, &timestamp, &filler, &cumul); err != nil {
			return nil, err
		}
		if f.Amount, err = strToUint64(amount); err != nil {
			return nil, err
		}
		if f.Timestamp, err = strToUint64(timestamp); err != nil {
			return nil, err
		}
		if f.Cumulative, err = strToUint64(cumul); err != nil {
			return nil, err
		}
		if f.Filler, err = agreement.ParseAddress(filler); err != nil {
			return nil, err
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
