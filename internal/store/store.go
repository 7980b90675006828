package store

import (
	"context"
	"errors"
	"strings"

	"github.com/aprsa/phoebe-lab/internal/types"
)

const (
	BackendFile  = "file"
	BackendBbolt = "bbolt"
)

// StateStore persists the client state (session id, project name, user
// identity) across runs so the UI can offer to resume a session.
type StateStore interface {
	Load(ctx context.Context) (*types.ClientState, error)
	Save(ctx context.Context, state *types.ClientState) error
	Clear(ctx context.Context) error
	Backend() string
	Close() error
}

// Open selects a backend by name. The file backend writes a single JSON
// document; bbolt keeps the state in a bucket of its own.
func Open(backend, path string) (StateStore, error) {
	switch strings.TrimSpace(backend) {
	case "", BackendFile:
		return NewFileStateStore(path), nil
	case BackendBbolt:
		return NewBboltStateStore(path)
	}
	return nil, errors.New("unknown storage backend: " + backend)
}
