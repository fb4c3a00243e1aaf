package service

import (
	"context"
	"time"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/user"

	"github.com/google/uuid"
)

// ServiceInterface is the Lending Engine.
type ServiceInterface interface {
	Borrow(ctx context.Context, userID uuid.UUID, bookRef string, returnDate time.Time) ([]user.Loan, error)
	Return(ctx context.Context, userID, loanID uuid.UUID) ([]user.Loan, error)
	ListLoans(ctx context.Context, userID uuid.UUID) ([]user.LoanDetail, error)
	Reconcile(ctx context.Context) ([]bookModel.Book, error)
}

// CatalogStore is the slice of the book repository lending needs.
type CatalogStore interface {
	FindByRef(ctx context.Context, ref string) (*bookModel.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]bookModel.Book, error)
	MarkUnavailable(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseOrphaned(ctx context.Context, grace time.Duration) ([]bookModel.Book, error)
}

// IdentityStore is the slice of the user repository lending needs.
type IdentityStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	AppendLoan(ctx context.Context, userID uuid.UUID, loan user.Loan) ([]user.Loan, error)
	RemoveLoan(ctx context.Context, userID, loanID uuid.UUID) (*user.Loan, []user.Loan, error)
}

// ReconcileEnqueuer schedules an out-of-band orphan sweep.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, bookID, reason string) error
}
