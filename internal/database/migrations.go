package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Migration is a forward-only schema change.
type Migration struct {
	Version int
	Up      string
}

// Migrations contains all database migrations
var Migrations = []Migration{
	{
		Version: 1,
		Up: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY,
				seq BIGSERIAL,
				username VARCHAR(50) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version: 2,
		Up: `
			CREATE TABLE IF NOT EXISTS conversations (
				id UUID PRIMARY KEY,
				seq BIGSERIAL,
				owner_id UUID NOT NULL,
				title VARCHAR(100) NOT NULL,
				type VARCHAR(10) NOT NULL CHECK (type IN ('normal', 'direct', 'group')),
				members TEXT[] NOT NULL DEFAULT '{}',
				direct_pair TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT conversations_title_key UNIQUE (title),
				CONSTRAINT conversations_direct_pair_key UNIQUE (direct_pair)
			);

			CREATE INDEX IF NOT EXISTS idx_conversations_seq ON conversations(seq);
			CREATE INDEX IF NOT EXISTS idx_conversations_members ON conversations USING GIN (members);
		`,
	},
	{
		Version: 3,
		Up: `
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY,
				seq BIGSERIAL,
				conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
		`,
	},
	{
		Version: 4,
		Up: `
			CREATE TABLE IF NOT EXISTS profiles (
				id UUID PRIMARY KEY,
				username VARCHAR(50) UNIQUE NOT NULL REFERENCES users(username) ON DELETE CASCADE,
				about TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	AppliedAt time.Time
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB, log *slog.Logger) error {
	if err := ensureMigrationsTable(db); err != nil {
		return err
	}

	currentVersion, err := getCurrentVersion(db)
	if err != nil {
		return err
	}

	sorted := make([]Migration, len(Migrations))
	copy(sorted, Migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, migration := range sorted {
		if migration.Version <= currentVersion {
			continue
		}

		log.Info("migration.running", "version", migration.Version)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		log.Info("migration.completed", "version", migration.Version)
	}

	return nil
}

// AppliedMigrations lists recorded migrations in version order.
func AppliedMigrations(db *sql.DB) ([]AppliedMigration, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	rows, err := db.Query("SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied = append(applied, m)
	}
	return applied, rows.Err()
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func getCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// LatestVersion is the highest version in Migrations.
func LatestVersion() int {
	latest := 0
	for _, m := range Migrations {
		latest = max(latest, m.Version)
	}
	return latest
}
