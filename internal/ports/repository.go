// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrBidTooLow, etc.)
//   - Methods represent business operations, not CRUD operations
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
)

// MemeRepository is the contract for the durable record store beneath
// the core. Implementations own per-record serialization: the two
// conditional mutation methods must be atomic with respect to
// concurrent calls on the same meme ID, so that two bids racing
// against the same stale highest bid cannot both be accepted and
// concurrent votes cannot lose updates.
type MemeRepository interface {
	// GetByID retrieves a meme by its identifier.
	// Returns domain.ErrNotFound if the meme does not exist or was deleted.
	GetByID(ctx context.Context, id string) (*domain.Meme, error)

	// Create persists a new meme record.
	// Returns domain.ErrConflict if the ID is already taken.
	Create(ctx context.Context, meme *domain.Meme) error

	// List returns all current memes in creation order.
	List(ctx context.Context) ([]*domain.Meme, error)

	// Delete permanently removes a meme. Further mutations on the same
	// ID fail with domain.ErrNotFound; deletion never silently no-ops.
	Delete(ctx context.Context, id string) error

	// CompareAndSetBid atomically applies a bid if and only if amount
	// strictly exceeds the stored highest bid, setting bid and bidder
	// together. Returns the updated record on success,
	// domain.ErrBidTooLow if the condition fails, and
	// domain.ErrNotFound if the meme is absent.
	CompareAndSetBid(ctx context.Context, id, bidderID string, amount int) (*domain.Meme, error)

	// AdjustVotes atomically applies a vote delta to the net
	// favorability counter, clamping at zero. The clamped case still
	// succeeds and returns the (unchanged) record.
	// Returns domain.ErrNotFound if the meme is absent.
	AdjustVotes(ctx context.Context, id string, delta int) (*domain.Meme, error)
}
