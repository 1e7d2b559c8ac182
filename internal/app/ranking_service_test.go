package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
)

func TestRankingService_Leaderboard(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewRankingService(RankingServiceConfig{Repo: repo})

	// Created in order a, b, c, d with distinct vote counts
	seedMeme(t, repo, "a")
	seedMeme(t, repo, "b")
	seedMeme(t, repo, "c")
	seedMeme(t, repo, "d")

	for id, votes := range map[string]int{"a": 2, "b": 5, "c": 0, "d": 3} {
		for range votes {
			_, err := repo.AdjustVotes(ctx, id, 1)
			require.NoError(t, err)
		}
	}

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 4)

	assert.Equal(t, "b", board[0].ID)
	assert.Equal(t, "d", board[1].ID)
	assert.Equal(t, "a", board[2].ID)
	assert.Equal(t, "c", board[3].ID)
}

func TestRankingService_Leaderboard_TiesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewRankingService(RankingServiceConfig{Repo: repo})

	seedMeme(t, repo, "older")
	seedMeme(t, repo, "newer")
	seedMeme(t, repo, "top")

	_, err := repo.AdjustVotes(ctx, "top", 1)
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, "top", board[0].ID)
	// Equal counts: the earlier creation wins the tie, deterministically
	assert.Equal(t, "older", board[1].ID)
	assert.Equal(t, "newer", board[2].ID)
}

func TestRankingService_Leaderboard_Limit(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewRankingService(RankingServiceConfig{Repo: repo})

	for _, id := range []string{"a", "b", "c"} {
		seedMeme(t, repo, id)
	}

	board, err := svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	// Limit larger than the gallery returns everything
	board, err = svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, board, 3)
}

func TestRankingService_Leaderboard_Empty(t *testing.T) {
	svc := NewRankingService(RankingServiceConfig{Repo: newFakeRepo()})

	board, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestRankingService_Leaderboard_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = domain.NewUnavailableError("meme-store", "connection lost")
	svc := NewRankingService(RankingServiceConfig{Repo: repo})

	_, err := svc.Leaderboard(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestRankingService_Leaderboard_IsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewRankingService(RankingServiceConfig{Repo: repo})

	seedMeme(t, repo, "a")

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)

	// Later mutations must not bleed into an already-returned snapshot
	_, err = repo.AdjustVotes(ctx, "a", 1)
	require.NoError(t, err)

	assert.Zero(t, board[0].Upvotes)
}
