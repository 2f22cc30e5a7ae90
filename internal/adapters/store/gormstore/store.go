// Package gormstore keeps chat history in sqlite or postgres so a restarted
// client can page through messages without asking the server again.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/bnema/webim-client/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInvalidLimit = errors.New("history limit must be positive")

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.MessageStore = (*Store)(nil)

func NewStore(driver, dsn string) (*Store, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	store, err := NewStoreFromDB(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return store, nil
}

// NewStoreFromDB migrates the messages table on an existing connection.
func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) LoadRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, errInvalidLimit
	}

	var rows []messageRow
	err := s.db.WithContext(ctx).
		Order("time_micros DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	return oldestFirst(rows), nil
}

func (s *Store) LoadBefore(ctx context.Context, before domain.Message, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, errInvalidLimit
	}

	micros := before.Time.UnixMicro()
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("time_micros < ? OR (time_micros = ? AND id < ?)", micros, micros, string(before.ID)).
		Order("time_micros DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load messages before %s: %w", before.ID, err)
	}
	return oldestFirst(rows), nil
}

// Upsert writes messages in one transaction. Messages still being sent are
// skipped: they only become history once the server has them.
func (s *Store) Upsert(ctx context.Context, messages []domain.Message) error {
	now := s.now()
	rows := make([]messageRow, 0, len(messages))
	for _, m := range messages {
		if m.IsSending() {
			continue
		}
		rows = append(rows, messageRowFromDomain(m, now))
	}
	if len(rows) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert %d messages: %w", len(rows), err)
	}
	return nil
}

// Delete removes a message by id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id domain.MessageID) error {
	err := s.db.WithContext(ctx).
		Where("id = ? OR server_side_id = ?", string(id), string(id)).
		Delete(&messageRow{}).Error
	if err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&messageRow{}).Error
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func oldestFirst(rows []messageRow) []domain.Message {
	out := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	slices.Reverse(out)
	return out
}
