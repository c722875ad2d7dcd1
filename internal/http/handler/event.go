package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"wrenchio.app/dispatch/internal/dispatch"
	"wrenchio.app/dispatch/internal/domain"
	"wrenchio.app/dispatch/internal/http/dto"
)

type EventHandler struct {
	coordinator *dispatch.Coordinator
}

func NewEventHandler(coordinator *dispatch.Coordinator) *EventHandler {
	return &EventHandler{coordinator: coordinator}
}

// Ingest accepts a domain event and hands it to the dispatch coordinator.
// The response is 202: matching and delivery happen asynchronously.
func (h *EventHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	envelope, err := domain.NewEnvelope(domain.EventType(req.Type), req.TenantID, req.Payload, req.IdempotencyKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		envelope.TraceID = spanCtx.TraceID().String()
	}

	h.coordinator.Dispatch(ctx, envelope)

	c.JSON(http.StatusAccepted, dto.IngestEventResponse{
		Status:         "accepted",
		IdempotencyKey: envelope.IdempotencyKey,
	})
}
