package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Query selects journal entries
type Query struct {
	Limit     int
	Offset    int
	Since     *time.Time
	Until     *time.Time
	Accion    string
	SubAccion string
	Status    string // "ok", "error", or "" for both
}

// ActionCount is the per-action tally
type ActionCount struct {
	Accion   string    `json:"accion"`
	Total    int       `json:"total"`
	Errors   int       `json:"errors"`
	LastTime time.Time `json:"last_time"`
}

// Stats summarises the journal
type Stats struct {
	TotalCommands int           `json:"total_commands"`
	TotalErrors   int           `json:"total_errors"`
	Stored        int           `json:"stored"`
	LastCleanup   time.Time     `json:"last_cleanup"`
	Actions       []ActionCount `json:"actions"`
}

const entryColumns = `id, timestamp, source, accion, sub_accion, params, status,
	module, primary_text, secondary_text, tertiary_text, error_text`

// Recent returns entries newest first
func (j *CommandJournal) Recent(query Query) ([]Entry, error) {
	var args []interface{}
	sqlQuery := "SELECT " + entryColumns + " FROM commands WHERE 1=1"

	if query.Since != nil {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, *query.Since)
	}
	if query.Until != nil {
		sqlQuery += " AND timestamp <= ?"
		args = append(args, *query.Until)
	}
	if query.Accion != "" {
		sqlQuery += " AND accion = ?"
		args = append(args, query.Accion)
	}
	if query.SubAccion != "" {
		sqlQuery += " AND sub_accion = ?"
		args = append(args, query.SubAccion)
	}
	if query.Status != "" {
		sqlQuery += " AND status = ?"
		args = append(args, query.Status)
	}

	sqlQuery += " ORDER BY timestamp DESC, id DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)

		if query.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := j.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Source, &e.Accion, &e.SubAccion, &e.Params, &e.Status,
			&e.Module, &e.Primary, &e.Secondary, &e.Tertiary, &e.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Get returns one entry by id
func (j *CommandJournal) Get(id int64) (*Entry, error) {
	var e Entry
	err := j.db.QueryRow("SELECT "+entryColumns+" FROM commands WHERE id = ?", id).Scan(
		&e.ID, &e.Timestamp, &e.Source, &e.Accion, &e.SubAccion, &e.Params, &e.Status,
		&e.Module, &e.Primary, &e.Secondary, &e.Tertiary, &e.Error,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("command %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get command: %w", err)
	}
	return &e, nil
}

// Stats returns the lifetime counters and the per-action tallies
func (j *CommandJournal) Stats() (*Stats, error) {
	var stats Stats
	var lastCleanup sql.NullTime

	err := j.db.QueryRow(`
		SELECT total_commands, total_errors, last_cleanup
		FROM journal_stats WHERE id = 1
	`).Scan(&stats.TotalCommands, &stats.TotalErrors, &lastCleanup)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal stats: %w", err)
	}
	if lastCleanup.Valid {
		stats.LastCleanup = lastCleanup.Time
	}

	if stats.Stored, err = j.Count(); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(`
		SELECT accion, total, errors, last_time
		FROM action_counts
		ORDER BY total DESC, accion ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query action counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ac ActionCount
		var last sql.NullTime
		if err := rows.Scan(&ac.Accion, &ac.Total, &ac.Errors, &last); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		if last.Valid {
			ac.LastTime = last.Time
		}
		stats.Actions = append(stats.Actions, ac)
	}

	return &stats, rows.Err()
}

// Count returns the number of stored entries
func (j *CommandJournal) Count() (int, error) {
	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM commands").Scan(&count)
	return count, err
}
