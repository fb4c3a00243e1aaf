package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the Identity Store. Ledger and favorites mutations are
// single atomic statements, never read-modify-write.
type Repository interface {
	// Create returns ErrEmailAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// AppendLoan returns the ledger after the append.
	AppendLoan(ctx context.Context, userID uuid.UUID, loan Loan) ([]Loan, error)
	// RemoveLoan returns the removed loan and the remaining ledger,
	// or ErrLoanNotFound when the ledger does not hold loanID.
	RemoveLoan(ctx context.Context, userID, loanID uuid.UUID) (*Loan, []Loan, error)

	AddFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error)
	RemoveFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error)
}
