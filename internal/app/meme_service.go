package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/platform/logging"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// captionFlag gates best-effort annotation generation at creation time.
const captionFlag = "caption-generation"

// CreateMemeInput is the creation request.
type CreateMemeInput struct {
	Title    string
	ImageURL string
	Tags     []string
}

// MemeService orchestrates meme lifecycle use cases: creation with
// best-effort annotation generation, listing, and deletion.
type MemeService struct {
	repo     ports.MemeRepository
	broker   ports.EventPublisher
	captions ports.CaptionGenerator
	flags    ports.FeatureFlags
	locks    *KeyedMutex
	executor *Executor
	logger   *slog.Logger
}

// MemeServiceConfig contains dependencies for the meme service.
// Captions and Flags are optional; without them memes are created with
// empty annotations.
type MemeServiceConfig struct {
	Repo     ports.MemeRepository
	Broker   ports.EventPublisher
	Captions ports.CaptionGenerator
	Flags    ports.FeatureFlags
	Locks    *KeyedMutex
	Logger   *slog.Logger
}

// NewMemeService creates a new meme service.
func NewMemeService(cfg MemeServiceConfig) *MemeService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	locks := cfg.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}

	return &MemeService{
		repo:     cfg.Repo,
		broker:   cfg.Broker,
		captions: cfg.Captions,
		flags:    cfg.Flags,
		locks:    locks,
		executor: NewExecutor(logger),
		logger:   logger.With(slog.String("component", "app.MemeService")),
	}
}

// annotations holds the generated decorative fields.
type annotations struct {
	caption string
	vibe    string
}

// Create validates input, generates annotations, persists the meme, and
// broadcasts a memeCreated event. It follows the transactional pattern:
// validation aborts before any state change, and nothing is announced
// until the record is durably stored.
func (s *MemeService) Create(ctx context.Context, input CreateMemeInput) (*domain.Meme, error) {
	op := Operation[CreateMemeInput, annotations, *domain.Meme, *domain.Meme]{
		Name: "create_meme",

		Validate: func(_ context.Context, in CreateMemeInput) error {
			return domain.ValidateCreation(in.Title, in.ImageURL, in.Tags)
		},

		Perform: func(ctx context.Context, in CreateMemeInput) (annotations, error) {
			return s.generateAnnotations(ctx, in), nil
		},

		Verify: func(_ context.Context, in CreateMemeInput, generated annotations) (*domain.Meme, error) {
			meme, err := domain.NewMeme(uuid.NewString(), in.Title, in.ImageURL, in.Tags)
			if err != nil {
				return nil, err
			}

			meme.Caption = generated.caption
			meme.Vibe = generated.vibe

			return meme, nil
		},

		Archive: func(ctx context.Context, _ CreateMemeInput, meme *domain.Meme) error {
			// The lock spans commit and publish so a bid racing the
			// creation cannot get its event out first.
			unlock := s.locks.Lock(meme.ID)
			defer unlock()

			if err := s.repo.Create(ctx, meme); err != nil {
				return err
			}

			s.publish(ctx, domain.MemeCreatedEvent{Meme: meme})

			return nil
		},

		Respond: func(_ context.Context, _ CreateMemeInput, meme *domain.Meme) (*domain.Meme, error) {
			return meme, nil
		},
	}

	meme, err := Execute(ctx, s.executor, op, input)
	if err != nil {
		return nil, fmt.Errorf("creating meme: %w", err)
	}

	return meme, nil
}

// List returns all current memes in creation order.
func (s *MemeService) List(ctx context.Context) ([]*domain.Meme, error) {
	memes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing memes: %w", err)
	}

	return memes, nil
}

// Get returns a single meme by ID.
func (s *MemeService) Get(ctx context.Context, memeID string) (*domain.Meme, error) {
	return s.repo.GetByID(ctx, memeID)
}

// Delete permanently removes a meme and broadcasts the deletion.
// Deleting an absent meme fails with domain.ErrNotFound; the operation
// never silently no-ops.
func (s *MemeService) Delete(ctx context.Context, memeID string) error {
	unlock := s.locks.Lock(memeID)
	defer unlock()

	if err := s.repo.Delete(ctx, memeID); err != nil {
		return err
	}

	logging.FromContext(ctx).InfoContext(ctx, "meme deleted",
		slog.String("meme_id", memeID),
	)

	s.publish(ctx, domain.MemeDeletedEvent{MemeID: memeID})

	return nil
}

// generateAnnotations fetches caption and vibe in parallel from the
// external generator. Failures degrade to empty annotations; a flaky
// generator must never block meme creation.
func (s *MemeService) generateAnnotations(ctx context.Context, input CreateMemeInput) annotations {
	if s.captions == nil {
		return annotations{}
	}

	if s.flags != nil && !s.flags.IsEnabled(ctx, captionFlag, true) {
		return annotations{}
	}

	caption, vibe, err := Parallel2(ctx,
		func(ctx context.Context) (string, error) {
			return s.captions.GenerateCaption(ctx, input.Title, input.Tags)
		},
		func(ctx context.Context) (string, error) {
			return s.captions.GenerateVibe(ctx, input.Title, input.Tags)
		},
	)
	if err != nil {
		s.logger.WarnContext(ctx, "annotation generation failed",
			slog.String("title", input.Title),
			slog.Any("error", err),
		)

		return annotations{}
	}

	return annotations{caption: caption, vibe: vibe}
}

func (s *MemeService) publish(ctx context.Context, event ports.Event) {
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
