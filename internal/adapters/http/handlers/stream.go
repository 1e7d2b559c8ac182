package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/meme-exchange/internal/adapters/http/dto"
	"github.com/jsamuelsen/meme-exchange/internal/domain"
	"github.com/jsamuelsen/meme-exchange/internal/ports"
)

// heartbeatInterval is how often a comment frame is sent to keep
// intermediaries from closing an idle stream.
const heartbeatInterval = 25 * time.Second

// StreamHandler streams gallery events to subscribers over Server-Sent Events.
type StreamHandler struct {
	subscriber ports.EventSubscriber
	logger     *slog.Logger
}

// NewStreamHandler creates a new event stream handler.
func NewStreamHandler(subscriber ports.EventSubscriber, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &StreamHandler{
		subscriber: subscriber,
		logger:     logger.With(slog.String("component", "handlers.StreamHandler")),
	}
}

// StreamEvents handles GET /api/v1/events
// Subscribers receive events committed after they connect; there is no replay.
// The stream ends when the client disconnects or the broadcaster drops the
// subscriber for not keeping up.
//
// @Summary Subscribe to gallery events
// @Description Streams memeCreated, bidPlaced, voteUpdated and memeDeleted events as SSE
// @Tags events
// @Produce text/event-stream
// @Success 200
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/events [get]
func (h *StreamHandler) StreamEvents(c *gin.Context) {
	sub, err := h.subscriber.Subscribe(c.Request.Context())
	if err != nil {
		dto.HandleError(c, domain.NewUnavailableError("event-stream", err.Error()))
		return
	}
	defer sub.Close()

	// The server's write timeout would sever the stream mid-flight, so
	// clear the deadline for this response. Not all writers support
	// deadline control; a stream behind one of those lives at most one
	// write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	h.logger.Debug("subscriber connected", "remote", c.ClientIP())

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Dropped by the broadcaster, usually for falling behind.
				h.logger.Warn("subscriber stream closed by broadcaster", "remote", c.ClientIP())
				return
			}

			c.SSEvent(event.EventType(), event.Payload())
			c.Writer.Flush()

		case <-heartbeat.C:
			// Comment frame, ignored by EventSource clients.
			_, err := c.Writer.WriteString(": ping\n\n")
			if err != nil {
				return
			}

			c.Writer.Flush()

		case <-c.Request.Context().Done():
			h.logger.Debug("subscriber disconnected", "remote", c.ClientIP())
			return
		}
	}
}

// RegisterStreamRoutes registers the event stream route on the given router group.
func (h *StreamHandler) RegisterStreamRoutes(rg *gin.RouterGroup) {
	rg.GET("/events", h.StreamEvents)
}
