package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/meme-exchange/internal/adapters/http/dto"
	"github.com/jsamuelsen/meme-exchange/internal/adapters/http/middleware"
	"github.com/jsamuelsen/meme-exchange/internal/app"
	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/platform/config"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// anonymousBidder is used when a request carries no user identity.
const anonymousBidder = "anonymous"

// MemeHandler handles meme gallery HTTP endpoints.
type MemeHandler struct {
	memes   *app.MemeService
	auction *app.AuctionService
	votes   *app.VoteService
	ranking *app.RankingService
	authCfg *config.AuthConfig
}

// NewMemeHandler creates a new meme handler.
func NewMemeHandler(
	memes *app.MemeService,
	auction *app.AuctionService,
	votes *app.VoteService,
	ranking *app.RankingService,
	authCfg *config.AuthConfig,
) *MemeHandler {
	return &MemeHandler{
		memes:   memes,
		auction: auction,
		votes:   votes,
		ranking: ranking,
		authCfg: authCfg,
	}
}

// CreateMemeRequest is the HTTP request body for creating a meme.
// imageUrl is an opaque reference; the gallery stores and serves it
// without interpreting it, so only emptiness is rejected here.
type CreateMemeRequest struct {
	Title    string   `json:"title"    validate:"required,notempty,max=200"`
	ImageURL string   `json:"imageUrl" validate:"required,notempty"`
	Tags     []string `json:"tags"     validate:"required,min=1,dive,notempty"`
}

// PlaceBidRequest is the HTTP request body for placing a bid.
// Amount bounds are enforced by the auction service so that zero and
// negative amounts map to INVALID_AMOUNT rather than a generic binding error.
type PlaceBidRequest struct {
	Amount int `json:"amount"`
}

// MemeResponse is the HTTP response structure for a meme.
type MemeResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ImageURL      string    `json:"imageUrl"`
	Tags          []string  `json:"tags,omitempty"`
	Caption       string    `json:"caption,omitempty"`
	Vibe          string    `json:"vibe,omitempty"`
	Upvotes       int       `json:"upvotes"`
	HighestBid    int       `json:"highestBid"`
	HighestBidder string    `json:"highestBidder,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BidResponse is the HTTP response after a successful bid.
type BidResponse struct {
	MemeID        string `json:"memeId"`
	HighestBid    int    `json:"highestBid"`
	HighestBidder string `json:"highestBidder"`
}

// VoteResponse is the HTTP response after an upvote or downvote.
type VoteResponse struct {
	MemeID  string `json:"memeId"`
	Upvotes int    `json:"upvotes"`
}

// LeaderboardQuery binds the leaderboard query parameters.
type LeaderboardQuery struct {
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// toMemeResponse converts a domain Meme to an HTTP response.
func toMemeResponse(m *domain.Meme) *MemeResponse {
	return &MemeResponse{
		ID:            m.ID,
		Title:         m.Title,
		ImageURL:      m.ImageURL,
		Tags:          m.Tags,
		Caption:       m.Caption,
		Vibe:          m.Vibe,
		Upvotes:       m.Upvotes,
		HighestBid:    m.HighestBid,
		HighestBidder: m.HighestBidder,
		CreatedAt:     m.CreatedAt,
	}
}

func toMemeResponses(memes []*domain.Meme) []*MemeResponse {
	out := make([]*MemeResponse, 0, len(memes))
	for _, m := range memes {
		out = append(out, toMemeResponse(m))
	}

	return out
}

// bidderID resolves the caller's identity from the request headers.
// Requests without an identity bid as "anonymous".
func (h *MemeHandler) bidderID(c *gin.Context) string {
	claims := middleware.ExtractClaims(c, h.authCfg)
	if claims.Subject == "" {
		return anonymousBidder
	}

	return claims.Subject
}

// CreateMeme handles POST /api/v1/memes
//
// @Summary Create a meme
// @Description Adds a meme to the gallery and announces it to subscribers
// @Tags memes
// @Accept json
// @Produce json
// @Success 201 {object} MemeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/memes [post]
func (h *MemeHandler) CreateMeme(c *gin.Context) {
	var req CreateMemeRequest

	err := dto.BindAndValidate(c, &req)
	if err != nil {
		respondBindingError(c, err)
		return
	}

	// Carry the caller's identity so flag providers can target the
	// caption rollout per user.
	claims := middleware.ExtractClaims(c, h.authCfg)
	ctx := ports.WithFeatureFlagUser(c.Request.Context(), &ports.FeatureFlagUser{
		ID:        claims.Subject,
		Anonymous: claims.Subject == "",
	})

	meme, err := h.memes.Create(ctx, app.CreateMemeInput{
		Title:    req.Title,
		ImageURL: req.ImageURL,
		Tags:     req.Tags,
	})
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMemeResponse(meme))
}

// ListMemes handles GET /api/v1/memes
// Returns every meme in the gallery in creation order.
//
// @Summary List memes
// @Tags memes
// @Produce json
// @Success 200 {array} MemeResponse
// @Router /api/v1/memes [get]
func (h *MemeHandler) ListMemes(c *gin.Context) {
	memes, err := h.memes.List(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemeResponses(memes))
}

// GetMeme handles GET /api/v1/memes/:id
//
// @Summary Get a meme by ID
// @Tags memes
// @Produce json
// @Param id path string true "Meme ID"
// @Success 200 {object} MemeResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/memes/{id} [get]
func (h *MemeHandler) GetMeme(c *gin.Context) {
	meme, err := h.memes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemeResponse(meme))
}

// DeleteMeme handles DELETE /api/v1/memes/:id
// Removal is permanent. Subsequent operations on the ID return 404.
//
// @Summary Delete a meme
// @Tags memes
// @Param id path string true "Meme ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/memes/{id} [delete]
func (h *MemeHandler) DeleteMeme(c *gin.Context) {
	err := h.memes.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PlaceBid handles POST /api/v1/memes/:id/bid
// A bid must strictly exceed the current highest bid; ties lose.
//
// @Summary Bid on a meme
// @Tags auction
// @Accept json
// @Produce json
// @Param id path string true "Meme ID"
// @Success 200 {object} BidResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/memes/{id}/bid [post]
func (h *MemeHandler) PlaceBid(c *gin.Context) {
	var req PlaceBidRequest

	err := dto.BindAndValidate(c, &req)
	if err != nil {
		// A non-numeric or fractional amount is a malformed bid, not a
		// malformed request; it gets the same code as zero or negative.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "amount" {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrorCodeInvalidAmount,
				"amount must be a positive integer",
			).WithTraceID(dto.GetTraceID(c)))

			return
		}

		respondBindingError(c, err)

		return
	}

	memeID := c.Param("id")

	result, err := h.auction.PlaceBid(c.Request.Context(), memeID, h.bidderID(c), req.Amount)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &BidResponse{
		MemeID:        memeID,
		HighestBid:    result.HighestBid,
		HighestBidder: result.HighestBidder,
	})
}

// Upvote handles POST /api/v1/memes/:id/vote
//
// @Summary Upvote a meme
// @Tags votes
// @Produce json
// @Param id path string true "Meme ID"
// @Success 200 {object} VoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/memes/{id}/vote [post]
func (h *MemeHandler) Upvote(c *gin.Context) {
	memeID := c.Param("id")

	result, err := h.votes.Upvote(c.Request.Context(), memeID)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &VoteResponse{MemeID: memeID, Upvotes: result.Upvotes})
}

// Downvote handles POST /api/v1/memes/:id/downvote
// The count never goes below zero; a downvote at zero succeeds and stays at zero.
//
// @Summary Downvote a meme
// @Tags votes
// @Produce json
// @Param id path string true "Meme ID"
// @Success 200 {object} VoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/memes/{id}/downvote [post]
func (h *MemeHandler) Downvote(c *gin.Context) {
	memeID := c.Param("id")

	result, err := h.votes.Downvote(c.Request.Context(), memeID)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, &VoteResponse{MemeID: memeID, Upvotes: result.Upvotes})
}

// Leaderboard handles GET /api/v1/leaderboard
// Memes ordered by upvotes descending; ties keep creation order.
//
// @Summary Gallery leaderboard
// @Tags ranking
// @Produce json
// @Param limit query int false "Maximum entries to return (1-100)"
// @Success 200 {array} MemeResponse
// @Router /api/v1/leaderboard [get]
func (h *MemeHandler) Leaderboard(c *gin.Context) {
	var query LeaderboardQuery

	err := dto.BindQueryAndValidate(c, &query)
	if err != nil {
		respondBindingError(c, err)
		return
	}

	memes, err := h.ranking.Leaderboard(c.Request.Context(), query.Limit)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMemeResponses(memes))
}

// respondBindingError writes a 400 for binding and validation failures,
// with field-level details when the validator produced them.
func respondBindingError(c *gin.Context, err error) {
	if dto.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			dto.ValidationErrors(err),
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		"invalid request body",
	).WithTraceID(dto.GetTraceID(c)))
}

// curatorRole may delete memes from the gallery when auth is enabled.
const curatorRole = "curator"

// RegisterMemeRoutes registers meme gallery routes on the given router group.
// With auth enabled, deletion is restricted to the curator role; every
// other operation stays open to any caller.
func (h *MemeHandler) RegisterMemeRoutes(rg *gin.RouterGroup) {
	memes := rg.Group("/memes")
	memes.POST("", h.CreateMeme)
	memes.GET("", h.ListMemes)
	memes.GET("/:id", h.GetMeme)
	memes.POST("/:id/bid", h.PlaceBid)
	memes.POST("/:id/vote", h.Upvote)
	memes.POST("/:id/downvote", h.Downvote)

	if h.authCfg != nil && h.authCfg.Enabled {
		memes.DELETE("/:id", middleware.RequireRole(h.authCfg, curatorRole), h.DeleteMeme)
	} else {
		memes.DELETE("/:id", h.DeleteMeme)
	}

	rg.GET("/leaderboard", h.Leaderboard)
}
