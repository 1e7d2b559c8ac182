package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/meme-exchange/internal/adapters/http/dto"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/store"
	"github.com/jsamuelsen/meme-exchange/internal/app"
	"github.com/jsamuelsen/meme-exchange/internal/platform/config"
)

// newTestRouter wires the full handler stack over the in-memory store.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := store.NewMemoryStore()
	locks := app.NewKeyedMutex()

	memes := app.NewMemeService(app.MemeServiceConfig{Repo: repo, Locks: locks})
	auction := app.NewAuctionService(app.AuctionServiceConfig{Repo: repo, Locks: locks})
	votes := app.NewVoteService(app.VoteServiceConfig{Repo: repo, Locks: locks})
	ranking := app.NewRankingService(app.RankingServiceConfig{Repo: repo})

	handler := NewMemeHandler(memes, auction, votes, ranking, nil)

	engine := gin.New()
	handler.RegisterMemeRoutes(engine.Group("/api/v1"))

	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func createTestMeme(t *testing.T, engine *gin.Engine, title string) *MemeResponse {
	t.Helper()

	w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", &CreateMemeRequest{
		Title:    title,
		ImageURL: "https://cdn.example.com/img.png",
		Tags:     []string{"classic"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp MemeResponse

	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	return &resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse

	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	return &resp
}

func TestMemeHandler_CreateMeme(t *testing.T) {
	engine := newTestRouter(t)

	t.Run("returns 201 with created meme", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", &CreateMemeRequest{
			Title:    "Distracted Boyfriend",
			ImageURL: "https://cdn.example.com/boyfriend.png",
			Tags:     []string{"classic", "reaction"},
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)

		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "Distracted Boyfriend", resp.Title)
		assert.Equal(t, []string{"classic", "reaction"}, resp.Tags)
		assert.Zero(t, resp.Upvotes)
		assert.Zero(t, resp.HighestBid)
		assert.False(t, resp.CreatedAt.IsZero())
	})

	t.Run("returns 400 with field details for missing title", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", map[string]any{
			"imageUrl": "https://cdn.example.com/img.png",
			"tags":     []string{"classic"},
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Details, "title")
	})

	t.Run("accepts an opaque image reference", func(t *testing.T) {
		// The reference is stored and served as-is; it need not be a URL.
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", &CreateMemeRequest{
			Title:    "Opaque",
			ImageURL: "cat-picture-123",
			Tags:     []string{"classic"},
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "cat-picture-123", resp.ImageURL)
	})

	t.Run("returns 400 for blank image reference", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", &CreateMemeRequest{
			Title:    "Blank",
			ImageURL: "   ",
			Tags:     []string{"classic"},
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeValidation, resp.Error.Code)
	})

	t.Run("returns 400 for empty tag list", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes", &CreateMemeRequest{
			Title:    "No Tags",
			ImageURL: "https://cdn.example.com/img.png",
			Tags:     []string{},
		}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for non-JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/memes", strings.NewReader("not json"))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMemeHandler_GetAndList(t *testing.T) {
	engine := newTestRouter(t)

	first := createTestMeme(t, engine, "First")
	second := createTestMeme(t, engine, "Second")

	t.Run("get returns the meme", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/memes/"+first.ID, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "First", resp.Title)
	})

	t.Run("get unknown id returns 404", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/memes/nope", nil, nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeNotFound, resp.Error.Code)
	})

	t.Run("list returns memes in creation order", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/memes", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []*MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		require.Len(t, resp, 2)
		assert.Equal(t, first.ID, resp[0].ID)
		assert.Equal(t, second.ID, resp[1].ID)
	})
}

func TestMemeHandler_DeleteMeme(t *testing.T) {
	engine := newTestRouter(t)
	meme := createTestMeme(t, engine, "Ephemeral")

	w := doJSON(t, engine, http.MethodDelete, "/api/v1/memes/"+meme.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())

	// The ID is gone for good
	w = doJSON(t, engine, http.MethodGet, "/api/v1/memes/"+meme.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/api/v1/memes/"+meme.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid", &PlaceBidRequest{Amount: 10}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// newAuthTestRouter wires the handler stack with auth enabled so the
// curator gate on deletion is active.
func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := store.NewMemoryStore()
	locks := app.NewKeyedMutex()

	memes := app.NewMemeService(app.MemeServiceConfig{Repo: repo, Locks: locks})
	auction := app.NewAuctionService(app.AuctionServiceConfig{Repo: repo, Locks: locks})
	votes := app.NewVoteService(app.VoteServiceConfig{Repo: repo, Locks: locks})
	ranking := app.NewRankingService(app.RankingServiceConfig{Repo: repo})

	handler := NewMemeHandler(memes, auction, votes, ranking, &config.AuthConfig{Enabled: true})

	engine := gin.New()
	handler.RegisterMemeRoutes(engine.Group("/api/v1"))

	return engine
}

func TestMemeHandler_DeleteMeme_CuratorGate(t *testing.T) {
	engine := newAuthTestRouter(t)
	meme := createTestMeme(t, engine, "Guarded")

	t.Run("non-curator is refused", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodDelete, "/api/v1/memes/"+meme.ID, nil,
			map[string]string{"X-User-ID": "mallory", "X-User-Roles": "bidder"})

		require.Equal(t, http.StatusForbidden, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeForbidden, resp.Error.Code)

		// Still in the gallery
		w = doJSON(t, engine, http.MethodGet, "/api/v1/memes/"+meme.ID, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("curator may delete", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodDelete, "/api/v1/memes/"+meme.ID, nil,
			map[string]string{"X-User-ID": "alice", "X-User-Roles": "curator"})

		require.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, engine, http.MethodGet, "/api/v1/memes/"+meme.ID, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other operations stay open", func(t *testing.T) {
		open := createTestMeme(t, engine, "Still Open")

		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+open.ID+"/vote", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMemeHandler_PlaceBid(t *testing.T) {
	engine := newTestRouter(t)
	meme := createTestMeme(t, engine, "Auctioned")

	t.Run("accepts first bid with identified bidder", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			&PlaceBidRequest{Amount: 50},
			map[string]string{"X-User-ID": "alice"})

		require.Equal(t, http.StatusOK, w.Code)

		var resp BidResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, meme.ID, resp.MemeID)
		assert.Equal(t, 50, resp.HighestBid)
		assert.Equal(t, "alice", resp.HighestBidder)
	})

	t.Run("falls back to anonymous without identity header", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			&PlaceBidRequest{Amount: 60}, nil)

		require.Equal(t, http.StatusOK, w.Code)

		var resp BidResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "anonymous", resp.HighestBidder)
	})

	t.Run("equal bid returns 409 BID_TOO_LOW", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			&PlaceBidRequest{Amount: 60},
			map[string]string{"X-User-ID": "bob"})

		require.Equal(t, http.StatusConflict, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeBidTooLow, resp.Error.Code)
	})

	t.Run("zero amount returns 400 INVALID_AMOUNT", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			&PlaceBidRequest{Amount: 0}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeInvalidAmount, resp.Error.Code)
	})

	t.Run("negative amount returns 400 INVALID_AMOUNT", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			&PlaceBidRequest{Amount: -5}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeInvalidAmount, resp.Error.Code)
	})

	t.Run("fractional amount returns 400 INVALID_AMOUNT", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			map[string]any{"amount": 50.5}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeInvalidAmount, resp.Error.Code)
	})

	t.Run("non-numeric amount returns 400 INVALID_AMOUNT", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/bid",
			map[string]any{"amount": "fifty"}, nil)

		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, dto.ErrorCodeInvalidAmount, resp.Error.Code)
	})

	t.Run("unknown meme returns 404", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/missing/bid",
			&PlaceBidRequest{Amount: 10}, nil)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejected bid leaves the auction state untouched", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/memes/"+meme.ID, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, 60, resp.HighestBid)
		assert.Equal(t, "anonymous", resp.HighestBidder)
	})
}

func TestMemeHandler_Votes(t *testing.T) {
	engine := newTestRouter(t)
	meme := createTestMeme(t, engine, "Voted")

	vote := func(t *testing.T, action string) *VoteResponse {
		t.Helper()

		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+meme.ID+"/"+action, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp VoteResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)

		return &resp
	}

	t.Run("upvote increments", func(t *testing.T) {
		resp := vote(t, "vote")
		assert.Equal(t, 1, resp.Upvotes)

		resp = vote(t, "vote")
		assert.Equal(t, 2, resp.Upvotes)
	})

	t.Run("downvote decrements", func(t *testing.T) {
		resp := vote(t, "downvote")
		assert.Equal(t, 1, resp.Upvotes)
	})

	t.Run("downvote clamps at zero and still succeeds", func(t *testing.T) {
		resp := vote(t, "downvote")
		assert.Zero(t, resp.Upvotes)

		resp = vote(t, "downvote")
		assert.Zero(t, resp.Upvotes)
	})

	t.Run("vote on unknown meme returns 404", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/missing/vote", nil, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMemeHandler_Leaderboard(t *testing.T) {
	engine := newTestRouter(t)

	low := createTestMeme(t, engine, "Low")
	high := createTestMeme(t, engine, "High")
	mid := createTestMeme(t, engine, "Mid")

	upvote := func(id string, times int) {
		for range times {
			w := doJSON(t, engine, http.MethodPost, "/api/v1/memes/"+id+"/vote", nil, nil)
			require.Equal(t, http.StatusOK, w.Code)
		}
	}

	upvote(high.ID, 3)
	upvote(mid.ID, 1)

	t.Run("orders by upvotes descending", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/leaderboard", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []*MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		require.Len(t, resp, 3)
		assert.Equal(t, high.ID, resp[0].ID)
		assert.Equal(t, mid.ID, resp[1].ID)
		assert.Equal(t, low.ID, resp[2].ID)
	})

	t.Run("respects the limit parameter", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/leaderboard?limit=2", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []*MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		require.Len(t, resp, 2)
		assert.Equal(t, high.ID, resp[0].ID)
	})

	t.Run("treats limit zero as unlimited", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/api/v1/leaderboard?limit=0", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp []*MemeResponse

		err := json.Unmarshal(w.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Len(t, resp, 3)
	})

	t.Run("rejects out-of-range limit", func(t *testing.T) {
		for _, limit := range []string{"-1", "101", "abc"} {
			w := doJSON(t, engine, http.MethodGet, "/api/v1/leaderboard?limit="+limit, nil, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprintf("limit=%s", limit))
		}
	})
}
