// Package storage persists brain documents. Each component owns one JSON
// document which it reads and replaces whole.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/steveyegge/brain/internal/storage/file"
	"github.com/steveyegge/brain/internal/storage/postgres"
	"github.com/steveyegge/brain/internal/storage/sqlite"
	"github.com/steveyegge/brain/internal/types"
)

// Store defines the interface for document storage backends
type Store interface {
	// Load returns the raw document for key. found is false when no
	// document has been written yet.
	Load(ctx context.Context, key string) (data []byte, found bool, err error)

	// Save replaces the document for key
	Save(ctx context.Context, key string, data []byte) error

	// Close releases backend resources
	Close() error
}

// Document keys
const (
	KeyObserverLog  = "observer-log"
	KeyImprovements = "improvements"
	KeyABTests      = "ab-tests"
	KeyScores       = "scores"
	KeyLearnerLog   = "learner-log"
)

// Keys lists every document key
func Keys() []string {
	return []string{KeyObserverLog, KeyImprovements, KeyABTests, KeyScores, KeyLearnerLog}
}

// Backend names
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds storage configuration
type Config struct {
	// Backend is file, sqlite, postgres or memory
	// Default: "file"
	Backend string

	// Dir is the state directory for the file backend
	// Default: "docs"
	Dir string

	// SQLitePath is the database path for the sqlite backend.
	// Special value ":memory:" creates an in-memory database (useful for tests)
	SQLitePath string

	// PostgresURL is the connection string for the postgres backend
	PostgresURL string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendFile,
		Dir:     "docs",
	}
}

// NewStorage creates the configured storage backend
func NewStorage(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case BackendFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = "docs"
		}
		s, err := file.New(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("%w: sqlite backend requires a database path", types.ErrInvalidInput)
		}
		s, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("%w: postgres backend requires a connection URL", types.ErrInvalidInput)
		}
		s, err := postgres.New(ctx, postgres.DefaultConfig(cfg.PostgresURL))
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", types.ErrInvalidInput, cfg.Backend)
	}
}

// Get loads and strictly decodes the document for key. When no document
// exists, the value returned by init is used. Offset-less timestamps are
// accepted as local time. Decoding and validation failures wrap
// types.ErrMalformedInput.
func Get[T any, P interface {
	*T
	Validate() error
}](ctx context.Context, s Store, key string, init func() P) (P, error) {
	data, found, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return init(), nil
	}

	doc := P(new(T))
	dec := json.NewDecoder(bytes.NewReader(normalizeTimestamps(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", types.ErrMalformedInput, key, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrMalformedInput, key, err)
	}
	return doc, nil
}

// Put encodes doc as indented JSON and saves it under key
func Put(ctx context.Context, s Store, key string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}
