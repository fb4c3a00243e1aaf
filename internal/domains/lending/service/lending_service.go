package service

import (
	"context"
	"time"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/user"
	"library-backend/pkg/cache"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxLoanDays    int
	ReconcileGrace time.Duration
}

type LendingService struct {
	books    CatalogStore
	users    IdentityStore
	cache    cache.Cache
	enqueuer ReconcileEnqueuer
	cfg      Config
	now      func() time.Time
}

func NewService(books CatalogStore, users IdentityStore, cache cache.Cache, enqueuer ReconcileEnqueuer, cfg Config) *LendingService {
	if cfg.MaxLoanDays <= 0 {
		cfg.MaxLoanDays = 30
	}
	if cfg.ReconcileGrace <= 0 {
		cfg.ReconcileGrace = 5 * time.Minute
	}
	return &LendingService{
		books:    books,
		users:    users,
		cache:    cache,
		enqueuer: enqueuer,
		cfg:      cfg,
		now:      time.Now,
	}
}

var _ ServiceInterface = (*LendingService)(nil)

func (s *LendingService) checkReturnDate(returnDate time.Time) error {
	now := s.now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if returnDate.Before(startOfToday) || returnDate.After(now.AddDate(0, 0, s.cfg.MaxLoanDays)) {
		return model.ErrInvalidReturnDate
	}
	return nil
}

// Borrow flips the book unavailable with a conditional update, then appends
// the loan. A failed append is compensated by releasing the book.
func (s *LendingService) Borrow(ctx context.Context, userID uuid.UUID, bookRef string, returnDate time.Time) ([]user.Loan, error) {
	if err := s.checkReturnDate(returnDate); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	b, err := s.books.FindByRef(ctx, bookRef)
	if err != nil {
		return nil, err
	}

	won, err := s.books.MarkUnavailable(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, model.ErrBookUnavailable
	}

	loan := user.Loan{
		ID:         uuid.New(),
		BookID:     b.ID,
		BorrowedAt: s.now().UTC(),
		ReturnDate: returnDate.UTC(),
	}
	ledger, err := s.users.AppendLoan(ctx, userID, loan)
	if err != nil {
		s.compensate(ctx, b, err)
		return nil, err
	}

	s.invalidate(ctx, b)
	log.Info().
		Str("user_id", userID.String()).
		Str("book_id", b.ID.String()).
		Str("loan_id", loan.ID.String()).
		Msg("book borrowed")
	return ledger, nil
}

// compensate releases a book whose loan could not be recorded. If that also
// fails the lock is left for the sweep and a sweep is requested.
func (s *LendingService) compensate(ctx context.Context, b *bookModel.Book, cause error) {
	ctx = context.WithoutCancel(ctx)

	released, err := s.books.MarkAvailable(ctx, b.ID)
	switch {
	case err == nil && released:
		log.Warn().
			Err(cause).
			Str("book_id", b.ID.String()).
			Msg("loan append failed, book lock compensated")
		s.invalidate(ctx, b)
		return
	case err == nil:
		// Nothing to release: a ledger holds the book, so the append committed,
		// or the book is already free.
		log.Warn().
			Err(cause).
			Str("book_id", b.ID.String()).
			Msg("loan append reported failure but book was not released, lock kept")
		return
	}

	log.Error().
		Err(err).
		AnErr("cause", cause).
		Str("book_id", b.ID.String()).
		Msg("compensation failed, book left for reconcile")
	s.requestReconcile(ctx, b.ID, "borrow compensation failed")
}

func (s *LendingService) requestReconcile(ctx context.Context, bookID uuid.UUID, reason string) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueReconcile(ctx, bookID.String(), reason); err != nil {
		log.Error().Err(err).Str("book_id", bookID.String()).Msg("failed to enqueue reconcile")
	}
}

// Return removes the loan first, then releases the book. A failed release
// leaves an orphaned lock that the sweep repairs; the return itself stands.
func (s *LendingService) Return(ctx context.Context, userID, loanID uuid.UUID) ([]user.Loan, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	loan, ledger, err := s.users.RemoveLoan(ctx, userID, loanID)
	if err != nil {
		return nil, err
	}

	released, err := s.books.MarkAvailable(ctx, loan.BookID)
	if err != nil {
		log.Error().
			Err(err).
			Str("book_id", loan.BookID.String()).
			Msg("release after return failed, book left for reconcile")
		s.requestReconcile(context.WithoutCancel(ctx), loan.BookID, "release after return failed")
	} else if !released {
		log.Warn().Str("book_id", loan.BookID.String()).Msg("returned book was not released")
	}

	if b, err := s.books.FindByRef(ctx, loan.BookID.String()); err == nil {
		s.invalidate(ctx, b)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("loan_id", loanID.String()).
		Msg("book returned")
	return ledger, nil
}

func (s *LendingService) ListLoans(ctx context.Context, userID uuid.UUID) ([]user.LoanDetail, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	books, err := s.books.FindByIDs(ctx, user.LoanBookIDs(u.BorrowedBooks))
	if err != nil {
		return nil, err
	}
	return user.ExpandLoans(u.BorrowedBooks, books), nil
}

// Reconcile releases books that stayed unavailable past the grace period
// with no loan referencing them.
func (s *LendingService) Reconcile(ctx context.Context) ([]bookModel.Book, error) {
	released, err := s.books.ReleaseOrphaned(ctx, s.cfg.ReconcileGrace)
	if err != nil {
		return nil, err
	}

	for i := range released {
		s.invalidate(ctx, &released[i])
	}
	if len(released) > 0 {
		log.Warn().Int("released", len(released)).Msg("orphaned book locks released")
	}
	return released, nil
}

// invalidate drops every cached view of b. Cache errors never fail a write.
func (s *LendingService) invalidate(ctx context.Context, b *bookModel.Book) {
	if err := s.cache.Delete(ctx, b.CacheKeys()...); err != nil {
		log.Warn().Err(err).Str("book_id", b.ID.String()).Msg("failed to invalidate book cache")
	}
	if err := s.cache.DeletePattern(ctx, bookModel.CacheListPattern); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate book list cache")
	}
}
