package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding quota windows and the acquisition
// audit log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "prospector.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Quota windows ---

// UpsertQuotaWindow atomically creates-or-increments the window for an
// identifier and returns the resulting state. A window that started within
// the last `window` duration is incremented; an expired one is reset to
// count 1 with windowStart = now. The whole find-or-create-or-increment is a
// single statement, so two concurrent requests for the same identifier can
// never lose an update the way a read-then-write would.
func (s *Store) UpsertQuotaWindow(ctx context.Context, identifier, tier string, now time.Time, window time.Duration) (QuotaWindow, error) {
	nowStr := now.UTC().Format(time.RFC3339)
	cutoff := now.Add(-window).UTC().Format(time.RFC3339)

	// RFC3339 UTC timestamps compare lexicographically in time order, so
	// the window-expiry check is a plain string comparison.
	var (
		startStr string
		count    int
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quota_windows (identifier, tier, window_start, request_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(identifier) DO UPDATE SET
			tier = excluded.tier,
			request_count = CASE WHEN quota_windows.window_start > ? THEN quota_windows.request_count + 1 ELSE 1 END,
			window_start = CASE WHEN quota_windows.window_start > ? THEN quota_windows.window_start ELSE excluded.window_start END
		RETURNING window_start, request_count`,
		identifier, tier, nowStr, cutoff, cutoff,
	).Scan(&startStr, &count)
	if err != nil {
		return QuotaWindow{}, fmt.Errorf("upserting quota window for %q: %w", identifier, err)
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return QuotaWindow{}, fmt.Errorf("parsing window_start: %w", err)
	}

	return QuotaWindow{
		Identifier:   identifier,
		Tier:         tier,
		WindowStart:  start,
		RequestCount: count,
	}, nil
}

// GetQuotaWindow returns the current window row for an identifier without
// modifying it. ErrNotFound when the identifier has never been seen (or was
// purged).
func (s *Store) GetQuotaWindow(ctx context.Context, identifier string) (QuotaWindow, error) {
	var (
		w        QuotaWindow
		startStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT identifier, tier, window_start, request_count
		FROM quota_windows WHERE identifier = ?`, identifier,
	).Scan(&w.Identifier, &w.Tier, &startStr, &w.RequestCount)
	if err == sql.ErrNoRows {
		return QuotaWindow{}, ErrNotFound
	}
	if err != nil {
		return QuotaWindow{}, err
	}
	if w.WindowStart, err = time.Parse(time.RFC3339, startStr); err != nil {
		return QuotaWindow{}, fmt.Errorf("parsing window_start: %w", err)
	}
	return w, nil
}

// PurgeQuotaWindows deletes windows that started before cutoff and returns
// how many were removed. Storage growth control, not correctness: an expired
// row left behind is reset in place by the next upsert.
func (s *Store) PurgeQuotaWindows(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM quota_windows WHERE window_start < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purging quota windows: %w", err)
	}
	return res.RowsAffected()
}

// --- Acquisitions audit log ---

func (s *Store) SaveAcquisition(ctx context.Context, a Acquisition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO acquisitions (id, username, identifier, strategy, status, error_kind, message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Identifier, a.Strategy, a.Status, a.ErrorKind, a.Message, a.DurationMs,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListAcquisitions(ctx context.Context, limit, offset int) ([]Acquisition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, identifier, strategy, status, error_kind, message, duration_ms, created_at
		FROM acquisitions ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Acquisition
	for rows.Next() {
		var (
			a         Acquisition
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.Identifier, &a.Strategy, &a.Status, &a.ErrorKind, &a.Message, &a.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}
