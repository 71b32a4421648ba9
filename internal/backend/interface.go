package backend

import (
	"context"
	"time"

	"conti/internal/ledger"
	"conti/internal/session"
	"conti/internal/storage"
)

// CleanupFunc releases what a backend opened.
type CleanupFunc func() error

// BackendResult is an opened ledger plus the stores that came with it.
type BackendResult struct {
	Ledger ledger.Ledger
	// Session is set for the api backend only.
	Session *session.Session
	// Mirror is the SQLite database backing the api and sqlite backends.
	Mirror  *storage.SQLiteRepository
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// REST backend
	APIBaseURL string
	APITimeout time.Duration
	PageSize   int

	// SQLite mirror, also the api backend's session store
	SQLiteDBPath string

	// Memory backend
	SeedFile string
}

type BackendType string

const (
	APIBackend    BackendType = "api"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case APIBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
