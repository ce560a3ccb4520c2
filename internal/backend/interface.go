package backend

import (
	"context"

	"ledger/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the source instance and optional cleanup function
type BackendResult struct {
	Source  source.Source
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a source based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// PostgREST specific
	PostgRESTURL    string
	PostgRESTAPIKey string

	// Postgres specific
	DatabaseURL string

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	PostgRESTBackend BackendType = "postgrest"
	PostgresBackend  BackendType = "postgres"
	SQLiteBackend    BackendType = "sqlite"
	MemoryBackend    BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case PostgRESTBackend, PostgresBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
