package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/five82/reformer/internal/remote"
)

type recordRow struct {
	UserID      string    `gorm:"column:user_id;primaryKey;size:128"`
	ClassPlan   string    `gorm:"column:class_plan;type:text"`
	Preferences string    `gorm:"column:preferences;type:text"`
	SyncedAt    time.Time `gorm:"column:synced_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (recordRow) TableName() string { return "sync_records" }

type mutationRow struct {
	Seq        uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	MutationID string    `gorm:"column:mutation_id;size:64;not null;uniqueIndex"`
	UserID     string    `gorm:"column:user_id;size:128;not null;index"`
	Type       string    `gorm:"column:type;size:32;not null"`
	Action     string    `gorm:"column:action;size:16;not null"`
	Data       string    `gorm:"column:data;type:text"`
	Timestamp  time.Time `gorm:"column:timestamp"`
	ReceivedAt time.Time `gorm:"column:received_at;autoCreateTime"`
}

func (mutationRow) TableName() string { return "sync_mutations" }

// SQLiteStore keeps records in a SQLite file through GORM.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens or creates the database at path and migrates it.
func OpenSQLite(path string, verbose bool) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	level := logger.Silent
	if verbose {
		level = logger.Warn
	}
	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&recordRow{}, &mutationRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (*remote.SyncRecord, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", userID, err)
	}
	return &remote.SyncRecord{
		UserID:      row.UserID,
		ClassPlan:   rawOrNil(row.ClassPlan),
		Preferences: rawOrNil(row.Preferences),
		SyncedAt:    row.SyncedAt,
	}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, record remote.SyncRecord) error {
	row := recordRow{
		UserID:      record.UserID,
		ClassPlan:   rawString(record.ClassPlan),
		Preferences: rawString(record.Preferences),
		SyncedAt:    record.SyncedAt.UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"class_plan", "preferences", "synced_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", record.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendMutation(ctx context.Context, userID string, m remote.Mutation) error {
	row := mutationRow{
		MutationID: m.ID,
		UserID:     userID,
		Type:       m.Type,
		Action:     m.Action,
		Data:       rawString(m.Data),
		Timestamp:  m.Timestamp.UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mutation_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("append mutation %s: %w", m.ID, err)
	}
	return nil
}

// Mutations returns userID's mutation log in arrival order.
func (s *SQLiteStore) Mutations(ctx context.Context, userID string) ([]remote.Mutation, error) {
	var rows []mutationRow
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list mutations %s: %w", userID, err)
	}
	out := make([]remote.Mutation, len(rows))
	for i, r := range rows {
		out[i] = remote.Mutation{
			ID:        r.MutationID,
			Type:      r.Type,
			Action:    r.Action,
			Data:      rawOrNil(r.Data),
			Timestamp: r.Timestamp,
		}
	}
	return out, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
