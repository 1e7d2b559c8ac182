package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
)

func TestVoteService_Upvote(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	broker := &recordingBroker{}
	svc := NewVoteService(VoteServiceConfig{Repo: repo, Broker: broker})

	seedMeme(t, repo, "m1")

	result, err := svc.Upvote(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upvotes)

	events := broker.published()
	require.Len(t, events, 1)

	vote, ok := events[0].(domain.VoteUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", vote.MemeID)
	assert.Equal(t, 1, vote.Upvotes)
}

func TestVoteService_Downvote(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements above zero", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewVoteService(VoteServiceConfig{Repo: repo})

		seedMeme(t, repo, "m1")

		_, err := svc.Upvote(ctx, "m1")
		require.NoError(t, err)
		_, err = svc.Upvote(ctx, "m1")
		require.NoError(t, err)

		result, err := svc.Downvote(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Upvotes)
	})

	t.Run("clamps at zero and still broadcasts", func(t *testing.T) {
		repo := newFakeRepo()
		broker := &recordingBroker{}
		svc := NewVoteService(VoteServiceConfig{Repo: repo, Broker: broker})

		seedMeme(t, repo, "m1")

		result, err := svc.Downvote(ctx, "m1")
		require.NoError(t, err, "downvote at zero succeeds")
		assert.Zero(t, result.Upvotes)

		events := broker.published()
		require.Len(t, events, 1, "clamped downvote is still a committed mutation")

		vote, ok := events[0].(domain.VoteUpdatedEvent)
		require.True(t, ok)
		assert.Zero(t, vote.Upvotes)
	})
}

func TestVoteService_UnknownMeme(t *testing.T) {
	ctx := context.Background()
	broker := &recordingBroker{}
	svc := NewVoteService(VoteServiceConfig{Repo: newFakeRepo(), Broker: broker})

	_, err := svc.Upvote(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Downvote(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, broker.published())
}

func TestVoteService_ConcurrentVotes_NoneLost(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	broker := &recordingBroker{}
	svc := NewVoteService(VoteServiceConfig{Repo: repo, Broker: broker})

	seedMeme(t, repo, "m1")

	const votes = 64

	var wg sync.WaitGroup

	for range votes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Upvote(ctx, "m1")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	meme, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, votes, meme.Upvotes)

	// Every committed vote produced exactly one event.
	assert.Len(t, broker.published(), votes)
}

func TestVoteService_EventOrderMatchesCommitOrder(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	broker := &recordingBroker{}
	svc := NewVoteService(VoteServiceConfig{Repo: repo, Broker: broker})

	seedMeme(t, repo, "m1")

	const votes = 20

	var wg sync.WaitGroup

	for range votes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = svc.Upvote(ctx, "m1")
		}()
	}

	wg.Wait()

	// The per-meme lock spans commit and publish, so the observed
	// counters must be strictly increasing.
	events := broker.published()
	require.Len(t, events, votes)

	for i, event := range events {
		vote, ok := event.(domain.VoteUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, i+1, vote.Upvotes)
	}
}
