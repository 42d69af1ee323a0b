package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestNewCommandJournal(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "synthd-storage-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Journal Creation", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "test.db")
		j, err := NewCommandJournal(dbPath, 1000)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer j.Close()

		if j.dbPath != dbPath {
			t.Errorf("Expected dbPath %s, got %s", dbPath, j.dbPath)
		}
		if j.maxEntries != 1000 {
			t.Errorf("Expected maxEntries 1000, got %d", j.maxEntries)
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("Expected database file to be created")
		}
	})

	t.Run("Journal Creation with Nested Directory", func(t *testing.T) {
		dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
		j, err := NewCommandJournal(dbPath, 500)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer j.Close()

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("Expected nested directory to be created")
		}
	})

	t.Run("Tables Created", func(t *testing.T) {
		j, err := NewCommandJournal(filepath.Join(tempDir, "tables.db"), 10)
		if err != nil {
			t.Fatalf("Failed to create journal: %v", err)
		}
		defer j.Close()

		for _, table := range []string{"commands", "action_counts", "journal_stats"} {
			var name string
			err := j.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("Expected table %s to exist: %v", table, err)
			}
		}
	})
}

func TestRecord(t *testing.T) {
	j, cleanup := setupTestJournal(t, 1000)
	defer cleanup()

	t.Run("Record OK Command", func(t *testing.T) {
		id, err := j.Record(Entry{
			Source:    "socket",
			Accion:    "ad9850_command",
			SubAccion: "set_freq",
			Params:    `{"frecuencia_hz":7100000}`,
			Status:    "ok",
			Module:    "AD9850 (OFF)",
			Primary:   "7.100 MHz",
			Secondary: "Paso: 1 kHz",
			Tertiary:  "SALIDA APAGADA",
		})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if id <= 0 {
			t.Errorf("Expected positive id, got %d", id)
		}

		e, err := j.Get(id)
		if err != nil {
			t.Fatalf("Failed to read back entry: %v", err)
		}
		if e.Accion != "ad9850_command" || e.SubAccion != "set_freq" {
			t.Errorf("Unexpected entry %+v", e)
		}
		if e.Primary != "7.100 MHz" {
			t.Errorf("Expected primary 7.100 MHz, got %s", e.Primary)
		}
		if e.Timestamp.IsZero() {
			t.Error("Expected timestamp to be filled in")
		}
	})

	t.Run("Record Error Command", func(t *testing.T) {
		_, err := j.Record(Entry{Accion: "vfo_command", SubAccion: "set_freq", Status: "error", Error: "unsupported operation"})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	})

	t.Run("Invalid Status Rejected", func(t *testing.T) {
		if _, err := j.Record(Entry{Accion: "vfo_command", Status: "maybe"}); err == nil {
			t.Error("Expected constraint violation for unknown status")
		}
	})

	t.Run("Stats Updated", func(t *testing.T) {
		stats, err := j.Stats()
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if stats.TotalCommands != 2 {
			t.Errorf("Expected 2 commands, got %d", stats.TotalCommands)
		}
		if stats.TotalErrors != 1 {
			t.Errorf("Expected 1 error, got %d", stats.TotalErrors)
		}
		if stats.Stored != 2 {
			t.Errorf("Expected 2 stored, got %d", stats.Stored)
		}
		if len(stats.Actions) != 2 {
			t.Fatalf("Expected 2 actions, got %d", len(stats.Actions))
		}
	})

	t.Run("Missing Entry", func(t *testing.T) {
		if _, err := j.Get(9999); err == nil {
			t.Error("Expected error for missing entry")
		}
	})
}

func TestJournalCleanup(t *testing.T) {
	j, cleanup := setupTestJournal(t, 5)
	defer cleanup()

	t.Run("Automatic Cleanup During Record", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			if _, err := j.Record(Entry{Accion: "adf4351_command", SubAccion: "change_freq", Status: "ok"}); err != nil {
				t.Fatalf("Failed to record entry %d: %v", i, err)
			}
		}

		count, err := j.Count()
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 5 {
			t.Errorf("Expected 5 entries after cleanup, got %d", count)
		}

		stats, _ := j.Stats()
		if stats.TotalCommands != 8 {
			t.Errorf("Expected lifetime total 8, got %d", stats.TotalCommands)
		}
		if stats.LastCleanup.IsZero() {
			t.Error("Expected last_cleanup to be set")
		}
	})

	t.Run("Oldest Entries Removed", func(t *testing.T) {
		entries, err := j.Recent(Query{})
		if err != nil {
			t.Fatalf("Failed to query: %v", err)
		}
		for _, e := range entries {
			if e.ID <= 3 {
				t.Errorf("Entry %d should have been removed", e.ID)
			}
		}
	})

	t.Run("Manual Cleanup Within Limit", func(t *testing.T) {
		if err := j.Cleanup(); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
	})
}

func TestJournalUnlimited(t *testing.T) {
	j, cleanup := setupTestJournal(t, 0)
	defer cleanup()

	for i := 0; i < 20; i++ {
		j.Record(Entry{Accion: "get_status", Status: "ok", Timestamp: time.Now().UTC()})
	}
	if count, _ := j.Count(); count != 20 {
		t.Errorf("Expected 20 entries with no limit, got %d", count)
	}
}

func TestJournalClose(t *testing.T) {
	j, cleanup := setupTestJournal(t, 10)
	defer cleanup()

	t.Run("Close Successfully", func(t *testing.T) {
		if err := j.Close(); err != nil {
			t.Errorf("Expected no error closing journal, got: %v", err)
		}
	})

	t.Run("Close Nil Database", func(t *testing.T) {
		empty := &CommandJournal{}
		if err := empty.Close(); err != nil {
			t.Errorf("Expected no error closing nil database, got: %v", err)
		}
	})
}
