// Package domain contains core business entities and rules.
package domain

import (
	"strings"
	"time"
)

// NoBidder is the sentinel bidder identity for a meme that has not
// received any bid yet. HighestBidder is NoBidder exactly when
// HighestBid is zero.
const NoBidder = ""

// Meme is the central entity: an auctionable, votable gallery record.
// The record store holds the single authoritative copy; services never
// cache a shadow copy across operations.
type Meme struct {
	// ID is the unique, immutable identifier assigned at creation.
	ID string

	// Title is the non-empty display title.
	Title string

	// ImageURL references external image content. Opaque to the core.
	ImageURL string

	// Tags is an ordered sequence of non-empty strings. Insertion order
	// is preserved for display but carries no semantics.
	Tags []string

	// Caption and Vibe are decorative generated annotations, immutable
	// after creation and outside the consistency protocol.
	Caption string
	Vibe    string

	// Upvotes is the net favorability counter. Never negative; a
	// downvote at zero clamps rather than rejects.
	Upvotes int

	// HighestBid is monotonically non-decreasing after creation.
	// An accepted bid strictly exceeds the prior value; ties lose.
	HighestBid int

	// HighestBidder is the opaque identity token of the current highest
	// bidder, or NoBidder when HighestBid is zero.
	HighestBidder string

	// CreatedAt orders memes for leaderboard tie-breaking.
	CreatedAt time.Time

	// Version counts committed mutations, used by stores for optimistic
	// concurrency checks.
	Version int
}

// ValidateCreation checks meme creation input without constructing the
// entity. NewMeme runs the same checks; this export lets callers fail
// fast before spending effort on annotations or IDs.
func ValidateCreation(title, imageURL string, tags []string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError("title", "must not be empty")
	}

	if strings.TrimSpace(imageURL) == "" {
		return NewValidationError("imageUrl", "must not be empty")
	}

	if len(tags) == 0 {
		return NewValidationError("tags", "at least one tag is required")
	}

	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return NewValidationError("tags", "tags must not be empty")
		}
	}

	return nil
}

// NewMeme validates creation input and returns a fresh Meme with zeroed
// counters. The ID is assigned by the caller (typically a UUID from the
// application layer) so the domain stays free of infrastructure.
func NewMeme(id, title, imageURL string, tags []string) (*Meme, error) {
	if err := ValidateCreation(title, imageURL, tags); err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned = append(cleaned, strings.TrimSpace(tag))
	}

	return &Meme{
		ID:            id,
		Title:         strings.TrimSpace(title),
		ImageURL:      strings.TrimSpace(imageURL),
		Tags:          cleaned,
		HighestBidder: NoBidder,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ValidateBidAmount checks that a proposed bid amount is a positive
// integer. It says nothing about the current highest bid; that
// comparison belongs to the store's atomic conditional update.
func ValidateBidAmount(amount int) error {
	if amount <= 0 {
		return NewInvalidAmountError(amount, "bid must be a positive number of credits")
	}

	return nil
}

// AcceptBid applies an already-validated winning bid to the record.
// Callers must hold whatever serialization the store requires; the
// method itself only enforces the strictly-greater invariant.
func (m *Meme) AcceptBid(bidderID string, amount int) error {
	if err := ValidateBidAmount(amount); err != nil {
		return err
	}

	if amount <= m.HighestBid {
		return NewBidTooLowError(m.ID, amount, m.HighestBid)
	}

	m.HighestBid = amount
	m.HighestBidder = bidderID
	m.Version++

	return nil
}

// AdjustVotes applies a vote delta to the net favorability counter,
// clamping at zero. Clamped downvotes still count as a committed
// mutation so subscribers observe the (unchanged) value.
func (m *Meme) AdjustVotes(delta int) {
	m.Upvotes += delta
	if m.Upvotes < 0 {
		m.Upvotes = 0
	}

	m.Version++
}

// Clone returns a deep copy so stores can hand out records without
// exposing their authoritative state to caller mutation.
func (m *Meme) Clone() *Meme {
	clone := *m
	clone.Tags = append([]string(nil), m.Tags...)

	return &clone
}
