package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	bookModel "library-backend/internal/domains/book/model"
	bookService "library-backend/internal/domains/book/service"
	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/user"
	"library-backend/internal/shared/errs"
	"library-backend/internal/testutil/memstore"
	"library-backend/pkg/cache"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingEnqueuer) EnqueueReconcile(_ context.Context, bookID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, bookID)
	return nil
}

type fixture struct {
	svc      *LendingService
	store    *memstore.Store
	cache    *cache.MemoryCache
	enqueuer *recordingEnqueuer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memstore.New(),
		cache:    cache.NewMemoryCache(),
		enqueuer: &recordingEnqueuer{},
		now:      time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC),
	}
	f.store.Now = func() time.Time { return f.now }
	f.svc = NewService(f.store.Books(), f.store.Users(), f.cache, f.enqueuer, Config{
		MaxLoanDays:    30,
		ReconcileGrace: 5 * time.Minute,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

var dueDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestBorrow_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.store.SeedUser("U1", "u1@example.com")
	u2 := f.store.SeedUser("U2", "u2@example.com")
	b1 := f.store.SeedBook("B1", "Dune", true)

	ledger, err := f.svc.Borrow(ctx, u1.ID, "B1", dueDate)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, b1.ID, ledger[0].BookID)
	assert.True(t, dueDate.Equal(ledger[0].ReturnDate))
	assert.True(t, f.now.Equal(ledger[0].BorrowedAt))

	book, _ := f.store.Book(b1.ID)
	assert.False(t, book.Available)

	_, err = f.svc.Borrow(ctx, u2.ID, "B1", dueDate)
	assert.ErrorIs(t, err, model.ErrBookUnavailable)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestBorrow_MutualExclusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.store.SeedBook("B1", "Dune", true)

	const contenders = 16
	users := make([]user.User, contenders)
	for i := range users {
		users[i] = f.store.SeedUser(fmt.Sprintf("U%d", i), fmt.Sprintf("u%d@example.com", i))
	}

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		wins        int
		unavailable int
	)
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Borrow(ctx, id, b.ID.String(), dueDate)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, model.ErrBookUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, unavailable)

	holders := 0
	for _, u := range users {
		got, _ := f.store.User(u.ID)
		holders += len(got.BorrowedBooks)
	}
	assert.Equal(t, 1, holders)
}

func TestBorrow_LedgerGrowth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")

	const n = 5
	for i := 0; i < n; i++ {
		f.store.SeedBook(fmt.Sprintf("B%d", i), fmt.Sprintf("Book %d", i), true)
	}
	for i := 0; i < n; i++ {
		_, err := f.svc.Borrow(ctx, u.ID, fmt.Sprintf("B%d", i), dueDate)
		require.NoError(t, err)
	}

	got, _ := f.store.User(u.ID)
	require.Len(t, got.BorrowedBooks, n)
	seen := map[uuid.UUID]bool{}
	for _, l := range got.BorrowedBooks {
		assert.False(t, seen[l.BookID], "book borrowed twice")
		seen[l.BookID] = true
	}
}

func TestBorrow_UnavailableLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", false)
	before, _ := f.store.Book(b.ID)

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	assert.ErrorIs(t, err, model.ErrBookUnavailable)

	after, _ := f.store.Book(b.ID)
	assert.Equal(t, before, after)
	got, _ := f.store.User(u.ID)
	assert.Empty(t, got.BorrowedBooks)
}

func TestBorrow_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	f.store.SeedBook("B1", "Dune", true)

	tests := []struct {
		name    string
		userID  uuid.UUID
		ref     string
		due     time.Time
		wantErr error
	}{
		{"unknown user", uuid.New(), "B1", dueDate, user.ErrUserNotFound},
		{"unknown book", u.ID, "nope", dueDate, bookModel.ErrBookNotFound},
		{"due yesterday", u.ID, "B1", time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC), model.ErrInvalidReturnDate},
		{"due past 30 days", u.ID, "B1", f.now.AddDate(0, 0, 31), model.ErrInvalidReturnDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Borrow(ctx, tt.userID, tt.ref, tt.due)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := f.svc.Borrow(ctx, u.ID, "B1", time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err, "due today is allowed")
}

func TestBorrow_StepOneFailureSkipsAppend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	f.store.SeedBook("B1", "Dune", true)
	f.store.FailMarkUnavailable = errs.Storage("mark book unavailable", memstore.ErrInjected)

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.Error(t, err)
	assert.True(t, errs.IsRetryable(err))

	got, _ := f.store.User(u.ID)
	assert.Empty(t, got.BorrowedBooks)
}

func TestBorrow_AppendFailureIsCompensated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)
	f.store.FailAppendLoan = errs.Storage("append loan", memstore.ErrInjected)

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.Error(t, err)
	assert.Equal(t, errs.KindUnavailable, errs.KindOf(err))

	book, _ := f.store.Book(b.ID)
	assert.True(t, book.Available)
	assert.Nil(t, book.UnavailableSince)
	assert.Empty(t, f.enqueuer.calls)
}

func TestBorrow_CommittedAppendKeepsLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)
	f.store.FailAfterAppendLoan = memstore.ErrInjected

	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = prev })

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.Error(t, err)

	book, _ := f.store.Book(b.ID)
	assert.False(t, book.Available)
	stored, _ := f.store.User(u.ID)
	require.Len(t, stored.BorrowedBooks, 1)
	assert.Equal(t, b.ID, stored.BorrowedBooks[0].BookID)
	assert.Empty(t, f.enqueuer.calls)

	assert.Contains(t, logs.String(), "book was not released, lock kept")
	assert.NotContains(t, logs.String(), "book lock compensated")
}

func TestBorrow_FailedCompensationEnqueuesReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)
	f.store.FailAppendLoan = memstore.ErrInjected
	f.store.FailMarkAvailable = memstore.ErrInjected

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.Error(t, err)

	book, _ := f.store.Book(b.ID)
	assert.False(t, book.Available)
	assert.Equal(t, []string{b.ID.String()}, f.enqueuer.calls)

	f.store.FailMarkAvailable = nil
	f.now = f.now.Add(10 * time.Minute)
	released, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, b.ID, released[0].ID)
}

func TestReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	dune := f.store.SeedBook("B1", "Dune", true)
	f.store.SeedBook("B2", "Emma", true)

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.NoError(t, err)
	ledger, err := f.svc.Borrow(ctx, u.ID, "B2", dueDate)
	require.NoError(t, err)
	require.Len(t, ledger, 2)

	remaining, err := f.svc.Return(ctx, u.ID, ledger[0].ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, ledger[1].ID, remaining[0].ID)

	book, _ := f.store.Book(dune.ID)
	assert.True(t, book.Available)

	_, err = f.svc.Return(ctx, u.ID, ledger[0].ID)
	assert.ErrorIs(t, err, user.ErrLoanNotFound)

	_, err = f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	assert.NoError(t, err, "returned book can be borrowed again")
}

func TestReturn_ReleaseFailureEnqueuesReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)

	ledger, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.NoError(t, err)

	f.store.FailMarkAvailable = memstore.ErrInjected
	remaining, err := f.svc.Return(ctx, u.ID, ledger[0].ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, []string{b.ID.String()}, f.enqueuer.calls)
}

func TestReconcile_RespectsGraceAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")

	owned := f.store.SeedBook("OWNED", "Owned", true)
	_, err := f.svc.Borrow(ctx, u.ID, "OWNED", dueDate)
	require.NoError(t, err)

	orphan := f.store.SeedBook("ORPHAN", "Orphan", false)
	fresh := f.store.SeedBook("FRESH", "Fresh", false)
	f.store.Backdate(orphan.ID, 10*time.Minute)
	f.store.Backdate(owned.ID, 10*time.Minute)

	released, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, orphan.ID, released[0].ID)

	got, _ := f.store.Book(fresh.ID)
	assert.False(t, got.Available, "lock inside the grace period is kept")
	got, _ = f.store.Book(owned.ID)
	assert.False(t, got.Available, "owned lock is kept")
}

func TestBorrow_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)

	require.NoError(t, f.cache.Set(ctx, bookModel.CacheKeyDetail("B1"), b, time.Minute))
	require.NoError(t, f.cache.Set(ctx, bookModel.CacheKeyDetail(b.ID.String()), b, time.Minute))
	require.NoError(t, f.cache.Set(ctx, bookModel.CacheKeyList(1), []bookModel.Book{b}, time.Minute))

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Len())
}

func TestBorrow_DetailReadByAnyUUIDSpellingSeesLoan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	b := f.store.SeedBook("B1", "Dune", true)
	catalog := bookService.NewService(f.store.Books(), f.cache, nil)
	ref := strings.ToUpper(b.ID.String())

	before, err := catalog.GetBook(ctx, ref)
	require.NoError(t, err)
	require.True(t, before.Available)

	_, err = f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.NoError(t, err)

	after, err := catalog.GetBook(ctx, ref)
	require.NoError(t, err)
	assert.False(t, after.Available)
}

func TestListLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.store.SeedUser("U1", "u1@example.com")
	f.store.SeedBook("B1", "Dune", true)

	_, err := f.svc.Borrow(ctx, u.ID, "B1", dueDate)
	require.NoError(t, err)

	loans, err := f.svc.ListLoans(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.NotNil(t, loans[0].Book)
	assert.Equal(t, "Dune", loans[0].Book.Title)
	assert.False(t, loans[0].Book.Available)
}
