// Package ledger keeps an append-only history of applied light updates for
// auditing. The history is never used to restore state.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dokzlo13/ledhal/internal/lights"
	"github.com/dokzlo13/ledhal/internal/speaker"
)

// Entry represents a single applied update
type Entry struct {
	ID        int64
	ChangeID  string
	Seq       uint64 // Apply order within one process run
	Source    string
	Indicator lights.Indicator
	Timestamp time.Time // When the update was applied
	State     lights.State
	Owner     lights.Indicator // Cluster indicators only
	Output    *speaker.Output  // Cluster indicators only
	Error     string
}

// Ledger provides append-only history logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds an entry. Entries with an already recorded ChangeID are ignored.
func (l *Ledger) Append(e Entry) error {
	var outputJSON sql.NullString
	if e.Output != nil {
		data, err := json.Marshal(e.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		outputJSON = sql.NullString{String: string(data), Valid: true}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT OR IGNORE INTO light_history
			(change_id, seq, source, indicator, timestamp, color, flash_mode, flash_on_ms, flash_off_ms, owner, output, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ChangeID, int64(e.Seq), nullString(e.Source), string(e.Indicator), ts.UTC().UnixMilli(), int64(e.State.Color),
		e.State.FlashMode.String(), e.State.FlashOnMS, e.State.FlashOffMS,
		nullString(string(e.Owner)), outputJSON, nullString(e.Error))

	return err
}

// Recent returns the newest entries in apply order, newest first, optionally
// filtered by indicator. Rows may be inserted out of order by concurrent
// writers, so ordering uses the applied timestamp and sequence.
func (l *Ledger) Recent(indicator lights.Indicator, limit int) ([]*Entry, error) {
	query := `
		SELECT id, change_id, seq, source, indicator, timestamp, color, flash_mode, flash_on_ms, flash_off_ms, owner, output, error
		FROM light_history`
	args := []any{}
	if indicator != "" {
		query += ` WHERE indicator = ?`
		args = append(args, string(indicator))
	}
	query += ` ORDER BY timestamp DESC, seq DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM light_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var indicator, flashMode string
		var source, owner, output, errStr sql.NullString
		var seq, timestamp, color int64

		err := rows.Scan(
			&entry.ID, &entry.ChangeID, &seq, &source, &indicator, &timestamp, &color, &flashMode,
			&entry.State.FlashOnMS, &entry.State.FlashOffMS, &owner, &output, &errStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Seq = uint64(seq)
		entry.Source = source.String
		entry.Indicator = lights.Indicator(indicator)
		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.State.Color = uint32(color)
		if entry.State.FlashMode, err = lights.ParseFlashMode(flashMode); err != nil {
			return nil, err
		}
		if owner.Valid {
			entry.Owner = lights.Indicator(owner.String)
		}
		if errStr.Valid {
			entry.Error = errStr.String
		}
		if output.Valid && output.String != "" {
			entry.Output = &speaker.Output{}
			if err := json.Unmarshal([]byte(output.String), entry.Output); err != nil {
				return nil, fmt.Errorf("failed to unmarshal output: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
