package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// RankingService derives the leaderboard as a pure projection over the
// record store. Nothing is persisted: there is no rank field to keep in
// sync, and every call recomputes from current records.
type RankingService struct {
	repo   ports.MemeRepository
	logger *slog.Logger
}

// RankingServiceConfig contains dependencies for the ranking service.
type RankingServiceConfig struct {
	Repo   ports.MemeRepository
	Logger *slog.Logger
}

// NewRankingService creates a new ranking service.
func NewRankingService(cfg RankingServiceConfig) *RankingService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RankingService{
		repo:   cfg.Repo,
		logger: logger.With(slog.String("component", "app.RankingService")),
	}
}

// Leaderboard returns memes ordered by descending upvotes, ties broken
// by creation order. The result is a snapshot value consistent at the
// instant of the call, not a cursor. A limit of zero returns everything.
func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]*domain.Meme, error) {
	memes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing leaderboard: %w", err)
	}

	// List returns creation order; the stable sort preserves it for
	// equal vote counts.
	sort.SliceStable(memes, func(i, j int) bool {
		return memes[i].Upvotes > memes[j].Upvotes
	})

	if limit > 0 && limit < len(memes) {
		memes = memes[:limit]
	}

	return memes, nil
}
