package statedb

import (
	"database/sql"
	"encoding/json"
	"math"

	"github.com/TEENet-io/escrow-go/agreement"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// StoredEvent is an event as kept in the event log. Seq increases with
// every appended event.
type StoredEvent struct {
	Seq     uint64              `json:"seq"`
	Kind    agreement.EventKind `json:"kind"`
	Subject ethcommon.Hash      `json:"subject"`
	Payload json.RawMessage     `json:"payload"`
}

func (st *StateDB) AddEvent(ev agreement.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (kind, subject, payload) VALUES (?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(string(ev.Kind()), hashToStr(ev.Subject()), string(payload))
	return err
}

// ListEvents returns at most limit events with seq > after, oldest first.
func (st *StateDB) ListEvents(after uint64, limit int) ([]StoredEvent, error) {
	// seq is a signed 64-bit rowid
	if after >= math.MaxInt64 {
		return []StoredEvent{}, nil
	}

	query := `SELECT seq, kind, subject, payload FROM events WHERE seq > ? ORDER BY seq LIMIT ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(int64(after), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetEventsBySubject returns the events of one escrow or order, oldest first.
func (st *StateDB) GetEventsBySubject(subject ethcommon.Hash) ([]StoredEvent, error) {
	query := `SELECT seq, kind, subject, payload FROM events WHERE subject = ? ORDER BY seq`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(hashToStr(subject))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]StoredEvent, error) {
	events := []StoredEvent{}
	for rows.Next() {
		var (
			ev               StoredEvent
			kind, subject, p string
		)
		if err := rows.Scan(&ev.Seq, &kind, &subject, &p); err != nil {
			return nil, err
		}
		ev.Kind = agreement.EventKind(kind)
		ev.Subject = strToHash(subject)
		ev.Payload = json.RawMessage(p)
		events = append(events, ev)
	}
	return events, rows.Err()
}
