package thread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/roundtable-ai/roundtable/types"
)

// threadRecord is the gorm model backing SQLiteStore. One row per session
// key; the blob column is replaced wholesale on every save.
type threadRecord struct {
	Key       string `gorm:"primaryKey;column:key"`
	Blob      []byte `gorm:"column:blob"`
	UpdatedAt time.Time
}

func (threadRecord) TableName() string { return "threads" }

// SQLiteStore is a gorm-backed Store for single-node durable deployments.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at config.Path.
func NewSQLiteStore(config SQLiteConfig) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("thread: failed to open sqlite db: %w", err)
	}
	if err := db.AutoMigrate(&threadRecord{}); err != nil {
		return nil, fmt.Errorf("thread: migrate threads table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts the blob under key.
func (s *SQLiteStore) Save(ctx context.Context, key Key, blob []byte) error {
	record := threadRecord{Key: key.String(), Blob: blob, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"blob", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return types.NewError(types.ErrStoreFailure, "sqlite save failed").WithCause(err)
	}
	return nil
}

// Load returns the blob under key, or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, key Key) ([]byte, error) {
	var record threadRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "sqlite load failed").WithCause(err)
	}
	return record.Blob, nil
}

// Ping checks if the store is healthy.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

var _ Store = (*SQLiteStore)(nil)
