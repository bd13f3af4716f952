// Package store provides database access interfaces and implementations.
package store

import (
	"context"

	"github.com/apitest/gitbridge/internal/models"
)

// WatchStore defines operations for polling watch management.
type WatchStore interface {
	// Create persists a new file watch, normalizing the branch to a
	// fully-qualified ref and generating an ID when absent.
	Create(ctx context.Context, watch *models.FileWatch) error
	// Get retrieves a watch by ID, or nil when it does not exist.
	Get(ctx context.Context, id string) (*models.FileWatch, error)
	// ListByUser retrieves all watches registered by a user.
	ListByUser(ctx context.Context, userID string) ([]*models.FileWatch, error)
	// List retrieves every registered watch. Used by the poller.
	List(ctx context.Context) ([]*models.FileWatch, error)
	// UpdateLastCommitSHA records the most recently observed commit for a watch.
	UpdateLastCommitSHA(ctx context.Context, id, sha string) error
}

// Store is the main interface for database operations.
type Store interface {
	// Watches returns the WatchStore for polling watch operations.
	Watches() WatchStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Ping verifies the backing connection is alive.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
