package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	KeyServiceAvailable = "serviceAvailable"
	KeySessionToken     = "sessionToken"
)

// Setting is one persisted key/value pair.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}

// Settings stores the console's persisted flags. It is the availability
// flag and session token source of the remote catalog.
type Settings struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSettings(db *gorm.DB, logger *slog.Logger) *Settings {
	return &Settings{db: db, logger: logger}
}

// Get returns the value of key and whether it is set.
func (s *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	var row Setting
	err := s.db.WithContext(ctx).Where(&Setting{Key: key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	row := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// ServiceAvailable reports the availability flag. Only an explicitly falsy
// value disables the remote source; a missing flag or a read error leaves
// it enabled.
func (s *Settings) ServiceAvailable(ctx context.Context) bool {
	v, ok, err := s.Get(ctx, KeyServiceAvailable)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read availability flag", slog.Any("error", err))
		return true
	}
	return !ok || !IsFalsy(v)
}

func (s *Settings) SetServiceAvailable(ctx context.Context, available bool) error {
	return s.Set(ctx, KeyServiceAvailable, strconv.FormatBool(available))
}

// SessionToken returns the bearer token sent to the remote catalog.
func (s *Settings) SessionToken(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, KeySessionToken)
	return v, err
}

func (s *Settings) SetSessionToken(ctx context.Context, token string) error {
	return s.Set(ctx, KeySessionToken, strings.TrimSpace(token))
}

// Seed writes values that are not persisted yet. Persisted values win.
func (s *Settings) Seed(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if value == "" {
			continue
		}
		if _, ok, err := s.Get(ctx, key); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := s.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// IsFalsy reports whether v spells false.
func IsFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off", "n":
		return true
	}
	return false
}
