package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"CycleScope/internal/domain/models"
	xlogger "CycleScope/pkg/logger"
)

// RefreshHandler consumes refresh requests from Kafka.
type RefreshHandler struct {
	topic   string
	refresh *RefreshUseCase
	log     *xlogger.Logger
}

func NewRefreshHandler(topic string, refresh *RefreshUseCase, log *xlogger.Logger) *RefreshHandler {
	if log == nil {
		log = xlogger.Nop()
	}
	return &RefreshHandler{topic: topic, refresh: refresh, log: log}
}

func (h *RefreshHandler) Topic() string { return h.topic }

// Handle runs one refresh. Malformed requests and overlapping refreshes are dropped
// rather than retried.
func (h *RefreshHandler) Handle(ctx context.Context, data []byte) error {
	var req models.RefreshRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			h.log.Warn("malformed refresh request", xlogger.Error(err))
			return nil
		}
	}
	if err := ValidateTags(req.Tags); err != nil {
		h.log.Warn("invalid refresh request", xlogger.Error(err))
		return nil
	}

	_, err := h.refresh.Run(ctx, req.Tags)
	if errors.Is(err, ErrRefreshInProgress) {
		h.log.Info("refresh skipped, another run holds the lock")
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}
