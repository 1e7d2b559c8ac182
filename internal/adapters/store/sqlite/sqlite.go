// Package sqlite provides a SQLite-backed implementation of the meme
// repository using the pure Go modernc.org/sqlite driver.
//
// Bid acceptance and vote adjustment are expressed as database-level
// atomic conditional updates, so per-record serialization comes from
// the database rather than in-process locks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// Ensure Store implements the repository port.
var _ ports.MemeRepository = (*Store)(nil)

// Store implements ports.MemeRepository on SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store at the given database path. Parent directories
// are created and migrations run automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; serializing in the pool avoids
	// SQLITE_BUSY under concurrent mutations.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name returns the health check name for this store.
// Implements ports.HealthChecker.
func (s *Store) Name() string {
	return "meme-store"
}

// Check verifies database connectivity. Implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetByID implements ports.MemeRepository.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Meme, error) {
	row := s.db.QueryRowContext(ctx, selectMeme+" WHERE id = ?", id)

	meme, err := scanMeme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("meme", id)
	}

	if err != nil {
		return nil, storeError("get meme", err)
	}

	return meme, nil
}

// Create implements ports.MemeRepository.
func (s *Store) Create(ctx context.Context, meme *domain.Meme) error {
	tags, err := json.Marshal(meme.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memes (id, title, image_url, tags, caption, vibe,
			upvotes, highest_bid, highest_bidder, created_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meme.ID, meme.Title, meme.ImageURL, string(tags), meme.Caption, meme.Vibe,
		meme.Upvotes, meme.HighestBid, meme.HighestBidder,
		meme.CreatedAt.UnixMilli(), meme.Version,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.NewConflictError("meme", "id already exists")
		}

		return storeError("create meme", err)
	}

	return nil
}

// List implements ports.MemeRepository. Creation order follows the
// insert order, which the ranking service uses for stable tie-breaks.
func (s *Store) List(ctx context.Context) ([]*domain.Meme, error) {
	rows, err := s.db.QueryContext(ctx, selectMeme+" ORDER BY rowid")
	if err != nil {
		return nil, storeError("list memes", err)
	}
	defer func() { _ = rows.Close() }()

	var memes []*domain.Meme

	for rows.Next() {
		meme, err := scanMeme(rows)
		if err != nil {
			return nil, storeError("list memes", err)
		}

		memes = append(memes, meme)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("list memes", err)
	}

	return memes, nil
}

// Delete implements ports.MemeRepository.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM memes WHERE id = ?", id)
	if err != nil {
		return storeError("delete meme", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeError("delete meme", err)
	}

	if affected == 0 {
		return domain.NewNotFoundError("meme", id)
	}

	return nil
}

// CompareAndSetBid implements ports.MemeRepository. The strictly-greater
// check rides in the UPDATE's WHERE clause, so two bids racing against
// the same stale highest bid resolve to exactly one winner inside the
// database.
func (s *Store) CompareAndSetBid(ctx context.Context, id, bidderID string, amount int) (*domain.Meme, error) {
	if err := domain.ValidateBidAmount(amount); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("place bid", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE memes
		 SET highest_bid = ?, highest_bidder = ?, version = version + 1
		 WHERE id = ? AND highest_bid < ?`,
		amount, bidderID, id, amount,
	)
	if err != nil {
		return nil, storeError("place bid", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeError("place bid", err)
	}

	if affected == 0 {
		// Distinguish a missing record from a losing bid.
		var current int

		err := tx.QueryRowContext(ctx, "SELECT highest_bid FROM memes WHERE id = ?", id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("meme", id)
		}

		if err != nil {
			return nil, storeError("place bid", err)
		}

		return nil, domain.NewBidTooLowError(id, amount, current)
	}

	meme, err := scanMeme(tx.QueryRowContext(ctx, selectMeme+" WHERE id = ?", id))
	if err != nil {
		return nil, storeError("place bid", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("place bid", err)
	}

	return meme, nil
}

// AdjustVotes implements ports.MemeRepository. Clamping at zero happens
// inside the UPDATE so concurrent votes never lose updates or go
// negative.
func (s *Store) AdjustVotes(ctx context.Context, id string, delta int) (*domain.Meme, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("adjust votes", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE memes
		 SET upvotes = MAX(0, upvotes + ?), version = version + 1
		 WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return nil, storeError("adjust votes", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeError("adjust votes", err)
	}

	if affected == 0 {
		return nil, domain.NewNotFoundError("meme", id)
	}

	meme, err := scanMeme(tx.QueryRowContext(ctx, selectMeme+" WHERE id = ?", id))
	if err != nil {
		return nil, storeError("adjust votes", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("adjust votes", err)
	}

	return meme, nil
}

const selectMeme = `SELECT id, title, image_url, tags, caption, vibe,
	upvotes, highest_bid, highest_bidder, created_at, version FROM memes`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeme(row rowScanner) (*domain.Meme, error) {
	var (
		meme      domain.Meme
		tags      string
		createdAt int64
	)

	err := row.Scan(&meme.ID, &meme.Title, &meme.ImageURL, &tags,
		&meme.Caption, &meme.Vibe, &meme.Upvotes, &meme.HighestBid,
		&meme.HighestBidder, &createdAt, &meme.Version)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &meme.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}

	meme.CreatedAt = time.UnixMilli(createdAt).UTC()

	return &meme, nil
}

// storeError wraps infrastructure failures as unavailable so callers
// surface them as transient rather than internal errors.
func storeError(operation string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return err
	}

	return domain.NewUnavailableError("meme-store", fmt.Sprintf("%s: %v", operation, err))
}
