package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/meme-exchange/internal/adapters/clients"
	"github.com/jsamuelsen/meme-exchange/internal/domain"
)

// CaptionClientConfig contains configuration for the caption client.
type CaptionClientConfig struct {
	// Client is the HTTP client to use for requests.
	// The client's BaseURL should be set to the caption service endpoint.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// CaptionClient implements ports.CaptionGenerator against the external
// caption service. It demonstrates the ACL pattern: the service's wire
// DTOs never leave this file.
type CaptionClient struct {
	BaseAdapter
	logger *slog.Logger
}

// NewCaptionClient creates a new caption client adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewCaptionClient(cfg CaptionClientConfig) *CaptionClient {
	if cfg.Client == nil {
		panic("CaptionClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CaptionClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, "caption-service"),
		logger:      logger,
	}
}

// captionRequest is the external request DTO.
type captionRequest struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
	Kind  string   `json:"kind"`
}

// captionResponse is the external response DTO.
type captionResponse struct {
	Text string `json:"text"`
}

// GenerateCaption fetches a caption for the meme.
// Implements ports.CaptionGenerator.
func (c *CaptionClient) GenerateCaption(ctx context.Context, title string, tags []string) (string, error) {
	return c.generate(ctx, title, tags, "caption")
}

// GenerateVibe fetches a one-line mood description for the meme.
// Implements ports.CaptionGenerator.
func (c *CaptionClient) GenerateVibe(ctx context.Context, title string, tags []string) (string, error) {
	return c.generate(ctx, title, tags, "vibe")
}

func (c *CaptionClient) generate(ctx context.Context, title string, tags []string, kind string) (string, error) {
	if err := ValidateRequired(title, "title"); err != nil {
		return "", err
	}

	payload, err := json.Marshal(captionRequest{Title: title, Tags: tags, Kind: kind})
	if err != nil {
		return "", fmt.Errorf("encoding caption request: %w", err)
	}

	operation := "generate_" + kind

	body, err := c.Post(ctx, "/v1/generate", bytes.NewReader(payload), operation)
	if err != nil {
		return "", err
	}

	external, err := DecodeResponse[captionResponse](body)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(external.Text)
	if text == "" {
		return "", domain.NewUnavailableError(c.ServiceName(), "empty "+kind+" returned")
	}

	c.logger.DebugContext(ctx, "annotation generated",
		slog.String("kind", kind),
		slog.String("title", title),
	)

	return text, nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (c *CaptionClient) Name() string {
	return c.ServiceName()
}

// Check performs a health check against the caption service.
// Implements ports.HealthChecker.
func (c *CaptionClient) Check(ctx context.Context) error {
	resp, err := c.Client().Get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("caption service returned status %d", resp.StatusCode)
	}

	return nil
}
