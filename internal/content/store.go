package content

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DocumentContent is one key/value entry of canonical or proposed document
// text. No versioning: last write observed wins, matching the store this
// service assumes.
type DocumentContent struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     string
	UpdatedAt time.Time
}

// Store is the key/value object store the ledger persists buffers through.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var entry DocumentContent
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

func (s *GormStore) Put(ctx context.Context, key, value string) error {
	entry := DocumentContent{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Save(&entry).Error
}

func (s *GormStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).Model(&DocumentContent{}).
		Where("key LIKE ?", prefix+"%").
		Order("key ASC").
		Pluck("key", &keys).Error
	return keys, err
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&DocumentContent{}, "key = ?", key).Error
}
