package app

import (
	"context"
	"sync"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// recordingBroker captures published events for assertions.
type recordingBroker struct {
	mu     sync.Mutex
	events []ports.Event
	err    error
}

func (b *recordingBroker) Publish(_ context.Context, event ports.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return b.err
	}

	b.events = append(b.events, event)

	return nil
}

func (b *recordingBroker) published() []ports.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ports.Event, len(b.events))
	copy(out, b.events)

	return out
}

// fakeRepo is an in-memory ports.MemeRepository with injectable failures.
// onCreate, when set, runs after a record is stored but before Create
// returns, to widen the window between commit and publish.
type fakeRepo struct {
	mu    sync.Mutex
	memes map[string]*domain.Meme
	order []string

	failWith error
	onCreate func(id string)
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{memes: make(map[string]*domain.Meme)}
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Meme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	meme, ok := r.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	return meme.Clone(), nil
}

func (r *fakeRepo) Create(_ context.Context, meme *domain.Meme) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}

	if _, exists := r.memes[meme.ID]; exists {
		return domain.NewConflictError("meme", "id already exists")
	}

	r.memes[meme.ID] = meme.Clone()
	r.order = append(r.order, meme.ID)

	if r.onCreate != nil {
		r.onCreate(meme.ID)
	}

	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]*domain.Meme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	memes := make([]*domain.Meme, 0, len(r.order))
	for _, id := range r.order {
		if meme, ok := r.memes[id]; ok {
			memes = append(memes, meme.Clone())
		}
	}

	return memes, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}

	if _, ok := r.memes[id]; !ok {
		return domain.NewNotFoundError("meme", id)
	}

	delete(r.memes, id)

	return nil
}

func (r *fakeRepo) CompareAndSetBid(_ context.Context, id, bidderID string, amount int) (*domain.Meme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	meme, ok := r.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	if err := meme.AcceptBid(bidderID, amount); err != nil {
		return nil, err
	}

	return meme.Clone(), nil
}

func (r *fakeRepo) AdjustVotes(_ context.Context, id string, delta int) (*domain.Meme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	meme, ok := r.memes[id]
	if !ok {
		return nil, domain.NewNotFoundError("meme", id)
	}

	meme.AdjustVotes(delta)

	return meme.Clone(), nil
}

// stubCaptions returns canned annotations or a shared error.
type stubCaptions struct {
	caption string
	vibe    string
	err     error
}

func (s *stubCaptions) GenerateCaption(context.Context, string, []string) (string, error) {
	return s.caption, s.err
}

func (s *stubCaptions) GenerateVibe(context.Context, string, []string) (string, error) {
	return s.vibe, s.err
}

// stubFlags answers IsEnabled from a map; other lookups return defaults.
type stubFlags struct {
	enabled map[string]bool
}

func (s *stubFlags) IsEnabled(_ context.Context, flag string, defaultValue bool) bool {
	if v, ok := s.enabled[flag]; ok {
		return v
	}

	return defaultValue
}

func (s *stubFlags) GetString(_ context.Context, _ string, defaultValue string) string {
	return defaultValue
}

func (s *stubFlags) GetInt(_ context.Context, _ string, defaultValue int) int {
	return defaultValue
}

func (s *stubFlags) GetFloat(_ context.Context, _ string, defaultValue float64) float64 {
	return defaultValue
}

func (s *stubFlags) GetJSON(context.Context, string, any) error {
	return nil
}
