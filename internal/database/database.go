package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"kepler-clean/internal/scan"
)

// Actions recorded in the deletions table
const (
	ActionDelete = "DELETE"
	ActionError  = "ERROR"
)

// DeletionDB manages the SQLite database for deletion history
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord represents a single deletion event
type DeletionRecord struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	ObjectType   string // dump, ascii, log_file, log_dir
	ModelSet     string
	Model        string
	DumpIndex    *int
	Size         int64
	ErrorMessage string
}

// ErrNoDatabase is returned by OpenDeletionDB when the history file does not exist
var ErrNoDatabase = errors.New("deletion database does not exist")

// NewDeletionDB creates a new database connection and initializes schema
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return open(dbPath)
}

// OpenDeletionDB opens an existing history file; it never creates one
func OpenDeletionDB(dbPath string) (*DeletionDB, error) {
	info, err := os.Stat(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, dbPath)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database path %s is a directory", dbPath)
	}
	return open(dbPath)
}

func open(dbPath string) (*DeletionDB, error) {
	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Exec instead of Ping so the file gets created
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, err
	}

	return ddb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		model_set TEXT NOT NULL,
		model TEXT,
		dump_index INTEGER,
		size INTEGER NOT NULL,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_object_type ON deletions(object_type);
	CREATE INDEX IF NOT EXISTS idx_model_set ON deletions(model_set);
	CREATE INDEX IF NOT EXISTS idx_model ON deletions(model);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordDeletion inserts a deletion event into the database
func (d *DeletionDB) RecordDeletion(action string, target scan.Target, errorMsg string) error {
	var dumpIndex *int64
	if target.DumpIndex != nil {
		v := int64(*target.DumpIndex)
		dumpIndex = &v
	}

	var errMsg *string
	if errorMsg != "" {
		errMsg = &errorMsg
	}

	query := `
	INSERT INTO deletions (
		timestamp, action, path, file_name, object_type,
		model_set, model, dump_index, size, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		time.Now().UTC(),
		action,
		target.Path,
		filepath.Base(target.Path),
		string(target.Kind),
		target.ModelSet,
		target.Model,
		dumpIndex,
		target.Size,
		errMsg,
	)

	return err
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// DatabaseStats describes the history file itself
type DatabaseStats struct {
	TotalRecords int64
	SizeBytes    int64
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&stats.TotalRecords); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, nil
}
