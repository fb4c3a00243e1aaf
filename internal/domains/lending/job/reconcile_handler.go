package job

import (
	"context"
	"encoding/json"
	"fmt"

	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// ReconcileHandler runs the orphaned-lock sweep for scheduled and enqueued tasks.
type ReconcileHandler struct {
	service service.ServiceInterface
}

func NewReconcileHandler(service service.ServiceInterface) *ReconcileHandler {
	return &ReconcileHandler{service: service}
}

func (h *ReconcileHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p shared.ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal reconcile payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	released, err := h.service.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	log.Info().
		Str("reason", p.Reason).
		Str("hint_book_id", p.BookID).
		Int("released", len(released)).
		Msg("reconcile task finished")
	return nil
}
