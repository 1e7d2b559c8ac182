package domain

// Event type identifiers carried on the subscription stream. The names
// are part of the wire contract with viewer sessions.
const (
	EventTypeMemeCreated = "memeCreated"
	EventTypeBidPlaced   = "bidPlaced"
	EventTypeVoteUpdated = "voteUpdated"
	EventTypeMemeDeleted = "memeDeleted"
)

// MemeCreatedEvent announces a newly created meme so galleries can
// patch themselves without a full refetch.
type MemeCreatedEvent struct {
	Meme *Meme `json:"meme"`
}

// EventType returns the type identifier for routing.
func (e MemeCreatedEvent) EventType() string { return EventTypeMemeCreated }

// EntityID returns the meme the event concerns.
func (e MemeCreatedEvent) EntityID() string { return e.Meme.ID }

// Payload returns the event data for serialization.
func (e MemeCreatedEvent) Payload() any { return e }

// BidPlacedEvent announces an accepted bid.
type BidPlacedEvent struct {
	MemeID   string `json:"memeId"`
	BidderID string `json:"bidderId"`
	Amount   int    `json:"amount"`
}

// EventType returns the type identifier for routing.
func (e BidPlacedEvent) EventType() string { return EventTypeBidPlaced }

// EntityID returns the meme the event concerns.
func (e BidPlacedEvent) EntityID() string { return e.MemeID }

// Payload returns the event data for serialization.
func (e BidPlacedEvent) Payload() any { return e }

// VoteUpdatedEvent announces a committed vote, carrying the resulting
// net favorability counter.
type VoteUpdatedEvent struct {
	MemeID  string `json:"memeId"`
	Upvotes int    `json:"upvotes"`
}

// EventType returns the type identifier for routing.
func (e VoteUpdatedEvent) EventType() string { return EventTypeVoteUpdated }

// EntityID returns the meme the event concerns.
func (e VoteUpdatedEvent) EntityID() string { return e.MemeID }

// Payload returns the event data for serialization.
func (e VoteUpdatedEvent) Payload() any { return e }

// MemeDeletedEvent announces a permanent deletion.
type MemeDeletedEvent struct {
	MemeID string `json:"memeId"`
}

// EventType returns the type identifier for routing.
func (e MemeDeletedEvent) EventType() string { return EventTypeMemeDeleted }

// EntityID returns the meme the event concerns.
func (e MemeDeletedEvent) EntityID() string { return e.MemeID }

// Payload returns the event data for serialization.
func (e MemeDeletedEvent) Payload() any { return e }
