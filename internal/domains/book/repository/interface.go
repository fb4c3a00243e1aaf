package repository

import (
	"context"
	"time"

	"library-backend/internal/domains/book/model"

	"github.com/google/uuid"
)

// RepositoryInterface is the Catalog Store.
type RepositoryInterface interface {
	// FindByRef resolves an internal uuid first, then an external id.
	FindByRef(ctx context.Context, ref string) (*model.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Book, error)
	List(ctx context.Context, offset, limit int) ([]model.Book, int, error)

	// CreateIfAbsent inserts candidates in one transaction and returns
	// only the rows it created.
	CreateIfAbsent(ctx context.Context, candidates []model.BookCandidate) ([]model.Book, error)

	// MarkUnavailable flips available true->false. false means the caller lost.
	MarkUnavailable(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkAvailable flips the book back unless some ledger still holds a loan on it.
	MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseOrphaned frees books locked longer than grace with no owning loan.
	ReleaseOrphaned(ctx context.Context, grace time.Duration) ([]model.Book, error)
}
