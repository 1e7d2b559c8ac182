// Package app contains application services that orchestrate use cases.
// This is the application layer in Clean Architecture - it coordinates
// domain logic and infrastructure through ports.
package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/platform/logging"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// BidResult is the outcome of an accepted bid.
type BidResult struct {
	HighestBid    int
	HighestBidder string
}

// AuctionService owns the current-highest-bid invariant. It validates
// bid submissions and applies them through the repository's atomic
// compare-and-set, then broadcasts the committed delta.
type AuctionService struct {
	repo   ports.MemeRepository
	broker ports.EventPublisher
	locks  *KeyedMutex
	logger *slog.Logger
}

// AuctionServiceConfig contains dependencies for the auction service.
type AuctionServiceConfig struct {
	Repo   ports.MemeRepository
	Broker ports.EventPublisher
	Locks  *KeyedMutex
	Logger *slog.Logger
}

// NewAuctionService creates a new auction service.
func NewAuctionService(cfg AuctionServiceConfig) *AuctionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}

	return &AuctionService{
		repo:   cfg.Repo,
		broker: cfg.Broker,
		locks:  locks,
		logger: logger.With(slog.String("component", "app.AuctionService")),
	}
}

// PlaceBid validates and applies a bid. An accepted bid strictly
// exceeds the prior highest bid; ties and lower amounts fail with
// domain.ErrBidTooLow and leave state unchanged. A rejected bid is a
// terminal outcome, never retried here, and emits no event.
func (s *AuctionService) PlaceBid(ctx context.Context, memeID, bidderID string, amount int) (*BidResult, error) {
	logger := logging.FromContext(ctx).With(
		slog.String("meme_id", memeID),
		slog.Int("amount", amount),
	)

	if err := domain.ValidateBidAmount(amount); err != nil {
		return nil, err
	}

	if bidderID == "" {
		return nil, domain.NewValidationError("bidderId", "must not be empty")
	}

	// The lock spans commit and publish so events for one meme reach
	// the broadcaster in commit order.
	unlock := s.locks.Lock(memeID)
	defer unlock()

	meme, err := s.repo.CompareAndSetBid(ctx, memeID, bidderID, amount)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "bid accepted",
		slog.String("bidder_id", bidderID),
		slog.Int("highest_bid", meme.HighestBid),
	)

	s.publish(ctx, domain.BidPlacedEvent{
		MemeID:   memeID,
		BidderID: bidderID,
		Amount:   meme.HighestBid,
	})

	return &BidResult{
		HighestBid:    meme.HighestBid,
		HighestBidder: meme.HighestBidder,
	}, nil
}

// publish is fire-and-forget: a delivery problem never fails the
// already-committed mutation.
func (s *AuctionService) publish(ctx context.Context, event ports.Event) {
	if s.broker == nil {
		return
	}

	if err := s.broker.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", event.EventType()),
			slog.Any("error", err),
		)
	}
}
