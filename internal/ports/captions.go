package ports

import (
	"context"
)

// CaptionGenerator produces the decorative caption and vibe annotations
// for a newly created meme. Generation is best-effort: the application
// layer degrades to empty annotations when the generator is down, so
// implementations should return domain.ErrUnavailable rather than
// inventing fallback text.
type CaptionGenerator interface {
	// GenerateCaption returns a caption for the given title and tags.
	GenerateCaption(ctx context.Context, title string, tags []string) (string, error)

	// GenerateVibe returns a one-line mood description.
	GenerateVibe(ctx context.Context, title string, tags []string) (string, error)
}
