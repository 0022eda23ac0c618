package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type DBDialect string

const (
	dialectSQLite   DBDialect = "sqlite"
	dialectPostgres DBDialect = "postgres"
	dialectMemory   DBDialect = "memory"
)

type LeaderboardEntry struct {
	Name        string
	Score       int
	Day         int
	CarsBuilt   int
	PerfectCars int
	At          time.Time
}

// Leaderboard records finished runs and serves the top-N table, descending by
// score with ties broken by insertion order.
type Leaderboard interface {
	Record(ctx context.Context, e LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]LeaderboardEntry, error)
	Close() error
}

// openLeaderboardFromEnv picks the backend from DB_DIALECT: sqlite (default),
// postgres, or memory for a throwaway session.
func openLeaderboardFromEnv() (Leaderboard, error) {
	dialectRaw := strings.TrimSpace(strings.ToLower(os.Getenv("DB_DIALECT")))
	if dialectRaw == "" {
		dialectRaw = string(dialectSQLite)
	}
	dialect := DBDialect(dialectRaw)

	var driverName string
	var dsn string
	switch dialect {
	case dialectMemory:
		return newMemoryLeaderboard(), nil
	case dialectSQLite:
		driverName = "sqlite"
		path := strings.TrimSpace(os.Getenv("DB_SQLITE_PATH"))
		if path == "" {
			path = filepath.Join("tmp", "garagemaster.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = path
	case dialectPostgres:
		driverName = "pgx"
		dsn = strings.TrimSpace(os.Getenv("DB_POSTGRES_DSN"))
		if dsn == "" {
			dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
		}
		if dsn == "" {
			return nil, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", dialectRaw)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	repo := &SQLLeaderboard{dialect: dialect, db: db}
	if err := repo.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("leaderboard: dialect=%s", dialect)
	return repo, nil
}

type SQLLeaderboard struct {
	dialect DBDialect
	db      *sql.DB
}

func (r *SQLLeaderboard) bind(pos int) string {
	if r.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (r *SQLLeaderboard) insertQuery(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = r.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func (r *SQLLeaderboard) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	pattern := fmt.Sprintf("migrations/%s/*.sql", r.dialect)
	files, err := fs.Glob(migrationFS, pattern)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := r.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func (r *SQLLeaderboard) Record(ctx context.Context, e LeaderboardEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	q := r.insertQuery("leaderboard_entries", []string{"name", "score", "day", "cars_built", "perfect_cars", "created_at"})
	if _, err := tx.ExecContext(ctx, q, e.Name, e.Score, e.Day, e.CarsBuilt, e.PerfectCars, e.At.UTC().Unix()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}

	// Keep only the top ten; lower ids win ties so earlier runs stay ahead.
	prune := fmt.Sprintf(`
		DELETE FROM leaderboard_entries WHERE id NOT IN (
			SELECT id FROM leaderboard_entries
			ORDER BY score DESC, id ASC
			LIMIT %s
		)
	`, r.bind(1))
	if _, err := tx.ExecContext(ctx, prune, leaderboardSize); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prune leaderboard: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

func (r *SQLLeaderboard) Top(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	q := fmt.Sprintf(`
		SELECT name, score, day, cars_built, perfect_cars, created_at
		FROM leaderboard_entries
		ORDER BY score DESC, id ASC
		LIMIT %s
	`, r.bind(1))
	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var createdAt int64
		if err := rows.Scan(&e.Name, &e.Score, &e.Day, &e.CarsBuilt, &e.PerfectCars, &createdAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.At = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard entries: %w", err)
	}
	return entries, nil
}

func (r *SQLLeaderboard) Close() error {
	return r.db.Close()
}

// MemoryLeaderboard keeps the table in process memory. Used when no database
// is wanted and throughout the engine tests.
type MemoryLeaderboard struct {
	entries []LeaderboardEntry
}

func newMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{}
}

func (m *MemoryLeaderboard) Record(_ context.Context, e LeaderboardEntry) error {
	m.entries = append(m.entries, e)
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].Score > m.entries[j].Score
	})
	if len(m.entries) > leaderboardSize {
		m.entries = m.entries[:leaderboardSize]
	}
	return nil
}

func (m *MemoryLeaderboard) Top(_ context.Context, n int) ([]LeaderboardEntry, error) {
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]LeaderboardEntry, n)
	copy(out, m.entries[:n])
	return out, nil
}

func (m *MemoryLeaderboard) Close() error {
	return nil
}
