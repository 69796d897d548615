package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/richinex/dossier/cache"
)

// interactionLog is the Postgres row for a cache.Record.
//
// Keyed columns use the json type, not jsonb: json keeps the text verbatim,
// so the canonical form written is the canonical form read back.
type interactionLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_interaction_action_time,priority:2,sort:desc"`
	ActionType  string         `gorm:"type:varchar(64);not null;index:idx_interaction_action_time,priority:1"`
	UserInput   datatypes.JSON `gorm:"type:json"`
	SearchData  datatypes.JSON `gorm:"type:json"`
	ModelInput  string         `gorm:"type:text"`
	ModelOutput string         `gorm:"type:text"`
	FinalOutput string         `gorm:"type:text"`
}

func (interactionLog) TableName() string {
	return "interaction_logs"
}

// PostgresStore is a cache.Store on Postgres via gorm.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects and migrates the interaction_logs table.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}
	return NewPostgresStore(db)
}

// NewPostgresStore wraps an open gorm handle and migrates the schema.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&interactionLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate interaction_logs: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert appends an interaction record.
func (s *PostgresStore) Insert(ctx context.Context, rec cache.Record) (int64, error) {
	row := interactionLog{
		CreatedAt:   rec.Timestamp,
		ActionType:  string(rec.Action),
		UserInput:   jsonOrNil(rec.UserInput),
		SearchData:  jsonOrNil(rec.SearchData),
		ModelInput:  rec.ModelInput,
		ModelOutput: rec.ModelOutput,
		FinalOutput: rec.FinalOutput,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert log: %w", err)
	}
	return row.ID, nil
}

// Recent returns up to limit records of the action, newest first.
func (s *PostgresStore) Recent(ctx context.Context, action cache.ActionType, limit int) ([]cache.Record, error) {
	q := s.db.WithContext(ctx).
		Where("action_type = ?", string(action)).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []interactionLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	out := make([]cache.Record, len(rows))
	for i, r := range rows {
		out[i] = cache.Record{
			ID:          r.ID,
			Timestamp:   r.CreatedAt,
			Action:      cache.ActionType(r.ActionType),
			UserInput:   string(r.UserInput),
			SearchData:  string(r.SearchData),
			ModelInput:  r.ModelInput,
			ModelOutput: r.ModelOutput,
			FinalOutput: r.FinalOutput,
		}
	}
	return out, nil
}

// Clear removes every interaction record.
func (s *PostgresStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&interactionLog{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	return nil
}

func jsonOrNil(s string) datatypes.JSON {
	if s == "" {
		return nil
	}
	return datatypes.JSON(s)
}

var _ cache.Store = (*PostgresStore)(nil)
