package main

import (
	lendingJob "library-backend/internal/domains/lending/job"
	"library-backend/internal/shared"
	"library-backend/pkg/container"

	"github.com/hibiken/asynq"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	reconcile *lendingJob.ReconcileHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		reconcile: lendingJob.NewReconcileHandler(c.LendingService),
	}
}

func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeReconcileLoans, h.reconcile.ProcessTask)
}
