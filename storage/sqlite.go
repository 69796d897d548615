// Package storage provides durable backends for the interaction log and the
// profile history.
//
// Information Hiding:
// - Connection management hidden behind the cache.Store interface
// - Schema creation runs on open; no external migration step
// - Thread-safe via each driver's own pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/model"
)

// SqliteStorage stores the interaction log and saved profiles in SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return initSqlite(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	return initSqlite(db)
}

func initSqlite(db *sql.DB) (*SqliteStorage, error) {
	s := &SqliteStorage{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			action_type TEXT NOT NULL,
			user_input TEXT,
			search_data TEXT,
			model_input TEXT,
			model_output TEXT,
			final_output TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_logs_action_time
		ON logs(action_type, timestamp DESC);

		CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			company TEXT,
			additional_info TEXT,
			profile_text TEXT NOT NULL,
			search_backend TEXT NOT NULL,
			model_backend TEXT NOT NULL,
			from_cache INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_profiles_owner_time
		ON profiles(owner, created_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert appends an interaction record.
func (s *SqliteStorage) Insert(ctx context.Context, rec cache.Record) (int64, error) {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, action_type, user_input, search_data, model_input, model_output, final_output)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixNano(), string(rec.Action),
		nullable(rec.UserInput), nullable(rec.SearchData),
		nullable(rec.ModelInput), nullable(rec.ModelOutput), nullable(rec.FinalOutput),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert log: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records of the action, newest first.
func (s *SqliteStorage) Recent(ctx context.Context, action cache.ActionType, limit int) ([]cache.Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, action_type, user_input, search_data, model_input, model_output, final_output
		 FROM logs WHERE action_type = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		string(action), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var out []cache.Record
	for rows.Next() {
		var (
			rec                                             cache.Record
			ts                                              int64
			actionType                                      string
			userInput, searchData, modelIn, modelOut, final sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &actionType, &userInput, &searchData, &modelIn, &modelOut, &final); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts)
		rec.Action = cache.ActionType(actionType)
		rec.UserInput = userInput.String
		rec.SearchData = searchData.String
		rec.ModelInput = modelIn.String
		rec.ModelOutput = modelOut.String
		rec.FinalOutput = final.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clear removes every interaction record. Saved profiles are kept.
func (s *SqliteStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM logs"); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	return nil
}

// SaveProfile adds a generated profile to the owner's history.
func (s *SqliteStorage) SaveProfile(ctx context.Context, p model.SavedProfile) (int64, error) {
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (owner, name, company, additional_info, profile_text, search_backend, model_backend, from_cache, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Owner, p.Name, nullable(p.Company), nullable(p.AdditionalInfo), p.ProfileText,
		p.SearchBackend, p.ModelBackend, p.FromCache, created.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save profile: %w", err)
	}
	return res.LastInsertId()
}

// SearchProfiles finds an owner's profiles whose name, company, or text
// contains query (case-insensitive), longest profile first.
func (s *SqliteStorage) SearchProfiles(ctx context.Context, owner, query string, limit int) ([]model.SavedProfile, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return s.queryProfiles(ctx,
		`SELECT id, owner, name, company, additional_info, profile_text, search_backend, model_backend, from_cache, created_at
		 FROM profiles
		 WHERE owner = ? AND (
			lower(name) LIKE ? ESCAPE '\' OR
			lower(coalesce(company, '')) LIKE ? ESCAPE '\' OR
			lower(profile_text) LIKE ? ESCAPE '\')
		 ORDER BY length(profile_text) DESC, created_at DESC
		 LIMIT ?`,
		owner, pattern, pattern, pattern, limit,
	)
}

// RecentProfiles lists an owner's newest profiles.
func (s *SqliteStorage) RecentProfiles(ctx context.Context, owner string, limit int) ([]model.SavedProfile, error) {
	return s.queryProfiles(ctx,
		`SELECT id, owner, name, company, additional_info, profile_text, search_backend, model_backend, from_cache, created_at
		 FROM profiles WHERE owner = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		owner, limit,
	)
}

func (s *SqliteStorage) queryProfiles(ctx context.Context, query string, args ...any) ([]model.SavedProfile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var out []model.SavedProfile
	for rows.Next() {
		var (
			p             model.SavedProfile
			company, info sql.NullString
			created       int64
		)
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &company, &info, &p.ProfileText,
			&p.SearchBackend, &p.ModelBackend, &p.FromCache, &created); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.Company = company.String
		p.AdditionalInfo = info.String
		p.CreatedAt = time.Unix(0, created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ cache.Store = (*SqliteStorage)(nil)
