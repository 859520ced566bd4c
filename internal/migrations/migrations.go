// Package migrations applies the embedded SQL schema scripts for the
// Postgres table store backend. Versions are tracked in a dedicated
// table and each script runs inside its own transaction.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const versionTable = "smartscan_schema_migrations"

var scriptNamePattern = regexp.MustCompile(`^([0-9]+)_.+\.(up|down)\.sql$`)

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

// scriptPair couples the up and down scripts that share a version.
type scriptPair struct {
	Version int64
	UpSQL   string
	DownSQL string
}

// Up applies pending migrations in ascending version order. A steps
// value of zero means apply everything pending.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	pairs, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}

	appliedSet := map[int64]struct{}{}
	applied, err := appliedVersions(ctx, db, "ASC")
	if err != nil {
		return 0, err
	}
	for _, version := range applied {
		appliedSet[version] = struct{}{}
	}

	count := 0
	for _, pair := range pairs {
		if _, done := appliedSet[pair.Version]; done {
			continue
		}
		if steps > 0 && count >= steps {
			break
		}
		mark := fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, versionTable)
		if err := execVersioned(ctx, db, pair.Version, pair.UpSQL, mark, "apply"); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down rolls back the most recently applied migrations. A steps value
// of zero (or less) rolls back exactly one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}

	pairs, err := loadScripts(r.fsys)
	if err != nil {
		return 0, err
	}
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}

	byVersion := make(map[int64]scriptPair, len(pairs))
	for _, pair := range pairs {
		byVersion[pair.Version] = pair
	}

	applied, err := appliedVersions(ctx, db, "DESC")
	if err != nil {
		return 0, err
	}

	count := 0
	for _, version := range applied {
		if count >= steps {
			break
		}
		pair, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("applied migration %d is missing from source", version)
		}
		if strings.TrimSpace(pair.DownSQL) == "" {
			return count, fmt.Errorf("migration %d has empty down SQL", version)
		}
		unmark := fmt.Sprintf(`DELETE FROM %s WHERE version = $1`, versionTable)
		if err := execVersioned(ctx, db, pair.Version, pair.DownSQL, unmark, "rollback"); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, versionTable)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure version table: %w", err)
	}
	return nil
}

// execVersioned runs the migration script and the version bookkeeping
// statement in one transaction so a failed script leaves no mark.
func execVersioned(ctx context.Context, db *sql.DB, version int64, script, bookkeeping, action string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("%s migration %d: %w", action, version, err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, version); err != nil {
		return fmt.Errorf("record %s of migration %d: %w", action, version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s of migration %d: %w", action, version, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB, order string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT version FROM %s ORDER BY version %s`, versionTable, order))
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

// loadScripts reads sql/ and pairs up/down files by version. Every
// version must carry both directions.
func loadScripts(fsys fs.FS) ([]scriptPair, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	byVersion := map[int64]scriptPair{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := path.Base(entry.Name())
		groups := scriptNamePattern.FindStringSubmatch(name)
		if groups == nil {
			continue
		}
		version, err := strconv.ParseInt(groups[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", name, err)
		}

		content, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		pair := byVersion[version]
		pair.Version = version
		if groups[2] == "up" {
			pair.UpSQL = string(content)
		} else {
			pair.DownSQL = string(content)
		}
		byVersion[version] = pair
	}

	pairs := make([]scriptPair, 0, len(byVersion))
	for _, pair := range byVersion {
		if strings.TrimSpace(pair.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", pair.Version)
		}
		if strings.TrimSpace(pair.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", pair.Version)
		}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Version < pairs[j].Version })
	return pairs, nil
}
