package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modgraph/internal/core/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName     = "sqlite"
	maxAttempts    = 5
	defaultProject = "default"
	// Fixed-width so ts_utc sorts lexically in time order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store persists analysis snapshots in a SQLite database.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL keep watch-mode reruns from tripping over each other.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveSnapshot writes the run, its modules and its unused exports in one
// transaction. An empty RunID is filled with a fresh UUID.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.Project = projectKey(snapshot.Project)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return errors.Newf(errors.CodeValidationError, "unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	return s.withRetry("save snapshot", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := insertSnapshot(ctx, tx, snapshot); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, snapshot Snapshot) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  run_id, project_key, schema_version, ts_utc, module_count, entry_count,
  external_count, side_effect_count, unused_export_count, unreachable_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.RunID,
		snapshot.Project,
		snapshot.SchemaVersion,
		snapshot.Timestamp.UTC().Format(timestampLayout),
		snapshot.ModuleCount,
		snapshot.EntryCount,
		snapshot.ExternalCount,
		snapshot.SideEffectCount,
		snapshot.UnusedExportCount,
		snapshot.UnreachableCount,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, mod := range snapshot.Modules {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO modules (run_id, module_id, is_entry, has_side_effects, import_count, export_count)
VALUES (?, ?, ?, ?, ?, ?)`,
			snapshot.RunID, mod.ID, mod.IsEntry, mod.HasSideEffects, mod.ImportCount, mod.ExportCount,
		); err != nil {
			return fmt.Errorf("insert module %q: %w", mod.ID, err)
		}
	}
	for _, rec := range snapshot.UnusedExports {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO unused_exports (run_id, module_id, export_name, line)
VALUES (?, ?, ?, ?)`,
			snapshot.RunID, rec.ModuleID, rec.Name, rec.Line,
		); err != nil {
			return fmt.Errorf("insert unused export %s#%s: %w", rec.ModuleID, rec.Name, err)
		}
	}
	return nil
}

// LatestSnapshot loads the most recent run of project. It returns a
// NOT_FOUND domain error when the project has no runs.
func (s *Store) LatestSnapshot(ctx context.Context, project string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project = projectKey(project)
	var (
		snapshot Snapshot
		tsRaw    string
	)
	err := s.withRetry("load latest run", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT run_id, project_key, schema_version, ts_utc, module_count, entry_count,
  external_count, side_effect_count, unused_export_count, unreachable_count
FROM runs
WHERE project_key = ?
ORDER BY ts_utc DESC, created_at_utc DESC
LIMIT 1`, project).Scan(
			&snapshot.RunID,
			&snapshot.Project,
			&snapshot.SchemaVersion,
			&tsRaw,
			&snapshot.ModuleCount,
			&snapshot.EntryCount,
			&snapshot.ExternalCount,
			&snapshot.SideEffectCount,
			&snapshot.UnusedExportCount,
			&snapshot.UnreachableCount,
		)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "no runs recorded for project %q", project), errors.CtxOperation, "latest snapshot")
	}
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	snapshot.Timestamp = ts.UTC()

	if snapshot.Modules, err = s.loadModules(ctx, snapshot.RunID); err != nil {
		return nil, err
	}
	if snapshot.UnusedExports, err = s.loadUnusedExports(ctx, snapshot.RunID); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) loadModules(ctx context.Context, runID string) ([]ModuleRecord, error) {
	var rows *sql.Rows
	err := s.withRetry("load modules", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT module_id, is_entry, has_side_effects, import_count, export_count
FROM modules WHERE run_id = ? ORDER BY module_id ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModuleRecord
	for rows.Next() {
		var rec ModuleRecord
		if err := rows.Scan(&rec.ID, &rec.IsEntry, &rec.HasSideEffects, &rec.ImportCount, &rec.ExportCount); err != nil {
			return nil, fmt.Errorf("scan module row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module rows: %w", err)
	}
	return out, nil
}

func (s *Store) loadUnusedExports(ctx context.Context, runID string) ([]UnusedExportRecord, error) {
	var rows *sql.Rows
	err := s.withRetry("load unused exports", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT module_id, export_name, line
FROM unused_exports WHERE run_id = ? ORDER BY module_id ASC, export_name ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnusedExportRecord
	for rows.Next() {
		var rec UnusedExportRecord
		if err := rows.Scan(&rec.ModuleID, &rec.Name, &rec.Line); err != nil {
			return nil, fmt.Errorf("scan unused export row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unused export rows: %w", err)
	}
	return out, nil
}

// Prune keeps the newest keep runs of project and deletes the rest.
func (s *Store) Prune(ctx context.Context, project string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		return 0, errors.Newf(errors.CodeValidationError, "keep must be >= 0, got %d", keep)
	}
	var deleted int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs
WHERE project_key = ?
  AND run_id NOT IN (
    SELECT run_id FROM runs WHERE project_key = ?
    ORDER BY ts_utc DESC, created_at_utc DESC LIMIT ?
  )`, projectKey(project), projectKey(project), keep)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func projectKey(project string) string {
	project = strings.TrimSpace(project)
	if project == "" {
		return defaultProject
	}
	return project
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
