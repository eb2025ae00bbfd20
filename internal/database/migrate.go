package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"lingo-quiz/internal/config"
	"lingo-quiz/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const upSuffix = ".up.sql"

// Migration is one versioned schema file.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// MigrationState reports whether a migration has been applied.
type MigrationState struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// LoadMigrations reads <dialect>/*.up.sql from fsys ordered by version.
func LoadMigrations(fsys fs.FS, dialect string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dialect)
	if err != nil {
		return nil, fmt.Errorf("could not read migrations directory %q: %w", dialect, err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, upSuffix) {
			continue
		}
		versionPart, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration file %s has no version prefix", name)
		}
		version, err := strconv.Atoi(versionPart)
		if err != nil {
			return nil, fmt.Errorf("migration file %s has an invalid version: %w", name, err)
		}
		content, err := fs.ReadFile(fsys, path.Join(dialect, name))
		if err != nil {
			return nil, fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version:    version,
			Name:       strings.TrimSuffix(name, upSuffix),
			Statements: splitStatements(string(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// splitStatements splits a file on semicolons that end a line. Oracle rejects
// trailing semicolons, so they are stripped. Comment-only lines are dropped.
func splitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			current.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), ";"))
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()
	return statements
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	db      *sqlx.DB
	fsys    fs.FS
	dialect string
}

func NewMigrator(db *sqlx.DB, fsys fs.FS, dialect string) *Migrator {
	return &Migrator{db: db, fsys: fsys, dialect: dialect}
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	if m.dialect == config.DriverPostgres {
		_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL)`)
		return err
	}

	var count int
	if err := m.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_tables WHERE table_name = 'SCHEMA_MIGRATIONS'`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := m.db.ExecContext(ctx, `CREATE TABLE schema_migrations (
		version NUMBER(10) PRIMARY KEY,
		name VARCHAR2(255) NOT NULL,
		applied_at TIMESTAMP NOT NULL)`)
	return err
}

type appliedRow struct {
	Version   int       `db:"version"`
	AppliedAt time.Time `db:"applied_at"`
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	var rows []appliedRow
	if err := m.db.SelectContext(ctx, &rows, `SELECT version, applied_at FROM schema_migrations ORDER BY version`); err != nil {
		return nil, fmt.Errorf("could not read schema_migrations: %w", err)
	}
	out := make(map[int]time.Time, len(rows))
	for _, r := range rows {
		out[r.Version] = r.AppliedAt
	}
	return out, nil
}

// Up applies every pending migration in version order and returns the names applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	l := logger.Get()
	migrations, err := LoadMigrations(m.fsys, m.dialect)
	if err != nil {
		return nil, err
	}
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("could not create schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, mig := range migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		for i, stmt := range mig.Statements {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return names, fmt.Errorf("could not execute migration %s (statement %d): %w", mig.Name, i+1, err)
			}
		}
		insert := m.db.Rebind(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`)
		if _, err := m.db.ExecContext(ctx, insert, mig.Version, mig.Name, time.Now().UTC()); err != nil {
			return names, fmt.Errorf("could not record migration %s: %w", mig.Name, err)
		}
		l.Info("Executed migration", zap.String("migration", mig.Name), zap.Int("statements", len(mig.Statements)))
		names = append(names, mig.Name)
	}

	if len(names) == 0 {
		l.Info("Database schema is up to date")
	} else {
		l.Info("Migrations completed successfully", zap.Int("applied", len(names)))
	}
	return names, nil
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	migrations, err := LoadMigrations(m.fsys, m.dialect)
	if err != nil {
		return nil, err
	}
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("could not create schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]MigrationState, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationState{Version: mig.Version, Name: mig.Name}
		if at, ok := done[mig.Version]; ok {
			at := at
			st.Applied = true
			st.AppliedAt = &at
		}
		states = append(states, st)
	}
	return states, nil
}
