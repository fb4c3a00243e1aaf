package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"library-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Enqueuer publishes lending maintenance tasks to asynq.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueReconcile asks the worker to run an orphan sweep soon.
// Duplicate requests within a minute collapse into one task.
func (e *Enqueuer) EnqueueReconcile(ctx context.Context, bookID, reason string) error {
	payload, err := json.Marshal(shared.ReconcilePayload{BookID: bookID, Reason: reason})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeReconcileLoans, payload)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueLending),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Unique(time.Minute),
	)
	if err != nil {
		return fmt.Errorf("enqueue reconcile: %w", err)
	}

	log.Info().
		Str("task_id", info.ID).
		Str("book_id", bookID).
		Str("reason", reason).
		Msg("reconcile task enqueued")
	return nil
}
