package photo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/retro-booth/internal/model"
)

// service defines the smart-crop entry point of the photo service.
type service interface {
	Enrich(ctx context.Context, task model.EnrichTask) error
}

// CapturedHandler handles enrichment tasks for freshly captured photos.
type CapturedHandler struct {
	service service
}

// NewCapturedHandler creates a new handler with the given service.
func NewCapturedHandler(s service) *CapturedHandler {
	return &CapturedHandler{service: s}
}

// Handle processes a Kafka message carrying a model.EnrichTask.
func (h *CapturedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var task model.EnrichTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return fmt.Errorf("unmarshal task: %w", err)
	}
	if task.PhotoID == "" {
		return fmt.Errorf("unmarshal task: missing photo id")
	}

	return h.HandleTask(ctx, task)
}

// HandleTask runs one task. A photo deleted before its turn is not an error.
func (h *CapturedHandler) HandleTask(ctx context.Context, task model.EnrichTask) error {
	if err := h.service.Enrich(ctx, task); err != nil {
		return fmt.Errorf("enrich photo %s: %w", task.PhotoID, err)
	}

	zlog.Logger.Debug().Str("photo_id", task.PhotoID).Msg("enrichment task handled")

	return nil
}
