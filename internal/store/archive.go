package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
)

// RoundRecord is one archived voting round.
type RoundRecord struct {
	ID             uint      `gorm:"primaryKey"`
	RoomCode       string    `gorm:"size:6;not null;index"`
	Theme          string    `gorm:"size:64;not null"`
	Kind           string    `gorm:"size:32;not null"`
	EliminatedID   string    `gorm:"size:64"`
	EliminatedName string    `gorm:"size:64"`
	MindlessID     string    `gorm:"size:64;not null"`
	MindlessName   string    `gorm:"size:64;not null"`
	GameEnded      bool      `gorm:"not null;default:false"`
	PlayedAt       time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
}

func (RoundRecord) TableName() string { return "round_history" }

// HistoryArchive writes resolved rounds to PostgreSQL through gorm.
type HistoryArchive struct {
	db *gorm.DB
}

func NewHistoryArchive(dsn string) (*HistoryArchive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return newHistoryArchive(db)
}

func newHistoryArchive(db *gorm.DB) (*HistoryArchive, error) {
	if err := db.AutoMigrate(&RoundRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &HistoryArchive{db: db}, nil
}

func (a *HistoryArchive) Append(ctx context.Context, code string, entries []engine.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]RoundRecord, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, RoundRecord{
			RoomCode:       code,
			Theme:          e.Theme,
			Kind:           string(e.Kind),
			EliminatedID:   e.EliminatedID,
			EliminatedName: e.EliminatedName,
			MindlessID:     e.MindlessID,
			MindlessName:   e.MindlessName,
			GameEnded:      e.GameEnded,
			PlayedAt:       e.At,
		})
	}
	if err := a.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("%w: archive %d rounds for %s: %w", ErrUnexpected, len(rows), code, err)
	}
	return nil
}

// Rounds returns the archived rounds of a room, oldest first.
func (a *HistoryArchive) Rounds(ctx context.Context, code string) ([]RoundRecord, error) {
	var rows []RoundRecord
	err := a.db.WithContext(ctx).Where("room_code = ?", code).Order("played_at, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	return rows, nil
}

func (a *HistoryArchive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
