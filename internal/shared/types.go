package shared

// Background task types
const (
	TypeReconcileLoans = "lending:reconcile_orphans"
)

// Asynq queues
const (
	QueueLending = "lending"
	QueueDefault = "default"
)

// ReconcilePayload carries an optional hint; an empty BookID sweeps the catalog.
type ReconcilePayload struct {
	BookID string `json:"bookId,omitempty"`
	Reason string `json:"reason,omitempty"`
}
