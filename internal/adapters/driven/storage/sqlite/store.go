package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.HistoryStore = (*Store)(nil)

// Store is the SQLite-backed run history store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a history store at the specified data directory.
// If dataDir is empty, defaults to ~/.sei-cli/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sei-cli", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	// WAL mode keeps readers usable while a run is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SaveRun stores a finished run, replacing any run with the same ID.
func (s *Store) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	casesJSON, err := json.Marshal(run.Cases)
	if err != nil {
		return fmt.Errorf("marshalling cases: %w", err)
	}

	var reportJSON sql.NullString
	if run.Report != nil {
		raw, err := json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshalling report: %w", err)
		}
		reportJSON = sql.NullString{String: string(raw), Valid: true}
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, unit, cases, report)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			unit = excluded.unit,
			cases = excluded.cases,
			report = excluded.report
	`, run.ID, createdAt, run.Unit, string(casesJSON), reportJSON)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, unit, cases, report
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns returns stored runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]domain.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, unit, cases, report
		FROM runs ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var casesJSON string
	var reportJSON sql.NullString

	if err := row.Scan(&run.ID, &run.CreatedAt, &run.Unit, &casesJSON, &reportJSON); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(casesJSON), &run.Cases); err != nil {
		return nil, fmt.Errorf("unmarshalling cases: %w", err)
	}
	if reportJSON.Valid {
		var report domain.BatchReport
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("unmarshalling report: %w", err)
		}
		run.Report = &report
	}
	return &run, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
