// Package thread provides durable, key-isolated persistence of serialized
// conversation state. Stored blobs are opaque to this package; the session
// key partitions them by participant identity and conversation identity so
// independent agents can share one conversation without cross-talk.
//
// Supported backends:
// - Memory: for development and testing (default)
// - Redis: for distributed deployments
// - SQLite (via gorm): for single-node durable deployments
package thread

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound signals that a key has never been saved. Callers must treat it
// as "start a new session", not as a fault.
var ErrNotFound = errors.New("thread: not found")

// Key is the composite identifier partitioning stored state. The same
// participant/conversation pair always yields the same key; distinct
// participants in one conversation get independently addressable states.
type Key struct {
	ParticipantID  string
	ConversationID string
}

// NewKey builds a session key from its two halves.
func NewKey(participantID, conversationID string) Key {
	return Key{ParticipantID: participantID, ConversationID: conversationID}
}

// String returns the derived storage key.
func (k Key) String() string {
	return k.ParticipantID + "/" + k.ConversationID
}

// Valid reports whether both halves are present.
func (k Key) Valid() bool {
	return k.ParticipantID != "" && k.ConversationID != ""
}

// Store is the durable session store contract.
//
// Save is a wholesale upsert: a repeated save under the same key replaces
// the prior blob entirely. Load returns ErrNotFound for keys never saved.
// Writes under one key are invisible to reads under any other key. Backend
// failures surface to the caller; they are never swallowed, since a dropped
// save loses conversation history.
type Store interface {
	// Save persists blob under key, replacing any prior value.
	Save(ctx context.Context, key Key, blob []byte) error

	// Load returns the blob stored under key, or ErrNotFound.
	Load(ctx context.Context, key Key) ([]byte, error)

	// Ping checks if the store is healthy.
	Ping(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// StoreType represents the type of storage backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQLite StoreType = "sqlite"
)

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"` // 0 means no expiry
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Type   StoreType    `yaml:"type"`
	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type: StoreTypeMemory,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "roundtable:",
		},
		SQLite: SQLiteConfig{
			Path: "./data/threads.db",
		},
	}
}

// NewStore builds the backend selected by config.
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStore(config.Redis)
	case StoreTypeSQLite:
		return NewSQLiteStore(config.SQLite)
	default:
		return nil, fmt.Errorf("thread: unknown store type %q", config.Type)
	}
}
