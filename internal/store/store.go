package store

import (
	"context"

	"github.com/hyperengineering/quill/internal/types"
)

// ListOptions filters ListMessages.
type ListOptions struct {
	// Limit caps the number of messages returned; zero means DefaultListLimit.
	Limit int
	// IncludeRejected also returns messages that failed moderation.
	IncludeRejected bool
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Store defines the interface contract for visitor log storage.
type Store interface {
	RecordMessage(ctx context.Context, msg types.NewVisitorMessage) (*types.VisitorMessage, error)
	ListMessages(ctx context.Context, opts ListOptions) ([]types.VisitorMessage, error)
	GetMessage(ctx context.Context, id string) (*types.VisitorMessage, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
