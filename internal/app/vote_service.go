package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/platform/logging"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// VoteResult carries the net favorability counter after a committed vote.
type VoteResult struct {
	Upvotes int
}

// VoteService owns the vote-count invariant. Votes are applied as
// atomic deltas through the repository, never as read-modify-write, so
// concurrent voting cannot lose updates.
type VoteService struct {
	repo   ports.MemeRepository
	broker ports.EventPublisher
	locks  *KeyedMutex
	logger *slog.Logger
}

// VoteServiceConfig contains dependencies for the vote service.
type VoteServiceConfig struct {
	Repo   ports.MemeRepository
	Broker ports.EventPublisher
	Locks  *KeyedMutex
	Logger *slog.Logger
}

// NewVoteService creates a new vote service.
func NewVoteService(cfg VoteServiceConfig) *VoteService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}

	return &VoteService{
		repo:   cfg.Repo,
		broker: cfg.Broker,
		locks:  locks,
		logger: logger.With(slog.String("component", "app.VoteService")),
	}
}

// Upvote increments the meme's net favorability counter.
func (s *VoteService) Upvote(ctx context.Context, memeID string) (*VoteResult, error) {
	return s.adjust(ctx, memeID, 1)
}

// Downvote decrements the counter, clamping at zero. A downvote on a
// meme already at zero still succeeds and returns the clamped value.
func (s *VoteService) Downvote(ctx context.Context, memeID string) (*VoteResult, error) {
	return s.adjust(ctx, memeID, -1)
}

func (s *VoteService) adjust(ctx context.Context, memeID string, delta int) (*VoteResult, error) {
	unlock := s.locks.Lock(memeID)
	defer unlock()

	meme, err := s.repo.AdjustVotes(ctx, memeID, delta)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).DebugContext(ctx, "vote committed",
		slog.String("meme_id", memeID),
		slog.Int("delta", delta),
		slog.Int("upvotes", meme.Upvotes),
	)

	if s.broker != nil {
		err := s.broker.Publish(ctx, domain.VoteUpdatedEvent{
			MemeID:  memeID,
			Upvotes: meme.Upvotes,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "event publish failed",
				slog.String("event_type", domain.EventTypeVoteUpdated),
				slog.Any("error", err),
			)
		}
	}

	return &VoteResult{Upvotes: meme.Upvotes}, nil
}
