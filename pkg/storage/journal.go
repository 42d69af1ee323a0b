package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one journaled command with the status record it produced
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Accion    string    `json:"accion"`
	SubAccion string    `json:"sub_accion"`
	Params    string    `json:"params"`
	Status    string    `json:"status"`
	Module    string    `json:"module"`
	Primary   string    `json:"primary"`
	Secondary string    `json:"secondary"`
	Tertiary  string    `json:"tertiary"`
	Error     string    `json:"error,omitempty"`
}

// CommandJournal keeps a bounded history of processed commands. It is
// telemetry only and never read back into driver state.
type CommandJournal struct {
	db         *sql.DB
	dbPath     string
	maxEntries int
}

// NewCommandJournal opens (or creates) the journal database
func NewCommandJournal(dbPath string, maxEntries int) (*CommandJournal, error) {
	j := &CommandJournal{
		dbPath:     dbPath,
		maxEntries: maxEntries,
	}

	if err := j.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize command journal: %w", err)
	}

	return j, nil
}

func (j *CommandJournal) initialize() error {
	if j.dbPath == "" {
		j.dbPath = "./synthd.db"
	}

	if err := os.MkdirAll(filepath.Dir(j.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	connectionString := j.dbPath + "?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on"

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	j.db = db

	if err := j.createTables(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := j.createIndexes(); err != nil {
		db.Close()
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("Command journal initialized: %s (max %d entries)", j.dbPath, j.maxEntries)
	return nil
}

func (j *CommandJournal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL DEFAULT '',
		accion TEXT NOT NULL,
		sub_accion TEXT NOT NULL DEFAULT '',
		params TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL CHECK (status IN ('ok', 'error')),
		module TEXT NOT NULL DEFAULT '',
		primary_text TEXT NOT NULL DEFAULT '',
		secondary_text TEXT NOT NULL DEFAULT '',
		tertiary_text TEXT NOT NULL DEFAULT '',
		error_text TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS action_counts (
		accion TEXT PRIMARY KEY,
		total INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		last_time DATETIME
	);

	CREATE TABLE IF NOT EXISTS journal_stats (
		id INTEGER PRIMARY KEY,
		total_commands INTEGER NOT NULL DEFAULT 0,
		total_errors INTEGER NOT NULL DEFAULT 0,
		last_cleanup DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO journal_stats (id, total_commands, total_errors)
	VALUES (1, 0, 0);
	`

	_, err := j.db.Exec(schema)
	return err
}

func (j *CommandJournal) createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_commands_timestamp ON commands(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_commands_accion ON commands(accion)",
		"CREATE INDEX IF NOT EXISTS idx_commands_status ON commands(status)",
	}

	for _, indexSQL := range indexes {
		if _, err := j.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Record appends an entry and trims the journal to its limit
func (j *CommandJournal) Record(e Entry) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Params == "" {
		e.Params = "{}"
	}

	tx, err := j.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO commands (
			timestamp, source, accion, sub_accion, params, status,
			module, primary_text, secondary_text, tertiary_text, error_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Timestamp, e.Source, e.Accion, e.SubAccion, e.Params, e.Status,
		e.Module, e.Primary, e.Secondary, e.Tertiary, e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert command: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get command ID: %w", err)
	}

	failed := 0
	if e.Status != "ok" {
		failed = 1
	}

	if _, err := tx.Exec(`
		INSERT INTO action_counts (accion, total, errors, last_time)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(accion) DO UPDATE SET
			total = total + 1,
			errors = errors + excluded.errors,
			last_time = excluded.last_time
	`, e.Accion, failed, e.Timestamp); err != nil {
		return 0, fmt.Errorf("failed to update action counts: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE journal_stats SET
			total_commands = total_commands + 1,
			total_errors = total_errors + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, failed); err != nil {
		return 0, fmt.Errorf("failed to update stats: %w", err)
	}

	if err := j.cleanup(tx); err != nil {
		log.Printf("Warning: failed to trim command journal: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Cleanup trims the journal to its limit
func (j *CommandJournal) Cleanup() error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := j.cleanup(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (j *CommandJournal) cleanup(tx *sql.Tx) error {
	if j.maxEntries <= 0 {
		return nil
	}

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM commands").Scan(&count); err != nil {
		return err
	}
	if count <= j.maxEntries {
		return nil
	}

	_, err := tx.Exec(`
		DELETE FROM commands
		WHERE id IN (
			SELECT id FROM commands
			ORDER BY id ASC
			LIMIT ?
		)
	`, count-j.maxEntries)
	if err != nil {
		return err
	}

	_, err = tx.Exec("UPDATE journal_stats SET last_cleanup = CURRENT_TIMESTAMP WHERE id = 1")
	return err
}

// Close closes the database connection
func (j *CommandJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
