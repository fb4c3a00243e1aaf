// Package memstore is an in-memory Catalog Store and Identity Store for
// tests. It honours the same conditional-update contracts as the Postgres
// repositories, and each method holds one lock so it is atomic.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookModel "library-backend/internal/domains/book/model"
	bookRepo "library-backend/internal/domains/book/repository"
	"library-backend/internal/domains/user"

	"github.com/google/uuid"
)

// ErrInjected is a ready-made failure for the Fail* hooks.
var ErrInjected = errors.New("injected storage failure")

type Store struct {
	mu    sync.Mutex
	books map[uuid.UUID]*bookModel.Book
	byExt map[string]uuid.UUID
	users map[uuid.UUID]*user.User
	order []uuid.UUID
	seq   int

	Now func() time.Time

	// Failure hooks, consulted before the matching mutation runs.
	FailAppendLoan      error
	// FailAfterAppendLoan stores the loan and then reports this error,
	// like a commit whose acknowledgement was lost.
	FailAfterAppendLoan error
	FailMarkAvailable   error
	FailMarkUnavailable error
}

func New() *Store {
	return &Store{
		books: make(map[uuid.UUID]*bookModel.Book),
		byExt: make(map[string]uuid.UUID),
		users: make(map[uuid.UUID]*user.User),
		Now:   time.Now,
	}
}

func (s *Store) Books() *BookRepo { return &BookRepo{s} }
func (s *Store) Users() *UserRepo { return &UserRepo{s} }

// SeedBook stores a book directly and returns a copy.
func (s *Store) SeedBook(externalID, title string, available bool) bookModel.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	b := &bookModel.Book{
		ID:         uuid.New(),
		ExternalID: externalID,
		Title:      title,
		Authors:    []string{bookModel.UnknownAuthor},
		Available:  available,
		CreatedAt:  now.Add(time.Duration(s.seq) * time.Millisecond),
		UpdatedAt:  now,
	}
	s.seq++
	if !available {
		b.UnavailableSince = &now
	}
	s.books[b.ID] = b
	s.byExt[externalID] = b.ID
	s.order = append(s.order, b.ID)
	return *b
}

// SeedUser stores a student with an empty ledger.
func (s *Store) SeedUser(name, email string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &user.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		Role:          user.RoleStudent,
		Favorites:     []uuid.UUID{},
		BorrowedBooks: []user.Loan{},
		CreatedAt:     s.Now(),
	}
	s.users[u.ID] = u
	return cloneUser(u)
}

// Book returns a snapshot of a stored book.
func (s *Store) Book(id uuid.UUID) (bookModel.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return bookModel.Book{}, false
	}
	return *b, true
}

// User returns a snapshot of a stored user.
func (s *Store) User(id uuid.UUID) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, false
	}
	return cloneUser(u), true
}

func (s *Store) BookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}

// Backdate moves a book's unavailable_since into the past.
func (s *Store) Backdate(id uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.books[id]; ok && b.UnavailableSince != nil {
		t := b.UnavailableSince.Add(-d)
		b.UnavailableSince = &t
	}
}

func cloneUser(u *user.User) user.User {
	c := *u
	c.Favorites = append([]uuid.UUID{}, u.Favorites...)
	c.BorrowedBooks = append([]user.Loan{}, u.BorrowedBooks...)
	return c
}

// ownedLocked reports whether any ledger references the book. Caller holds mu.
func (s *Store) ownedLocked(bookID uuid.UUID) bool {
	for _, u := range s.users {
		for _, l := range u.BorrowedBooks {
			if l.BookID == bookID {
				return true
			}
		}
	}
	return false
}

// BookRepo implements the book repository interface.
type BookRepo struct{ s *Store }

var _ bookRepo.RepositoryInterface = (*BookRepo)(nil)

func (r *BookRepo) FindByRef(_ context.Context, ref string) (*bookModel.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, err := uuid.Parse(ref); err == nil {
		if b, ok := r.s.books[id]; ok {
			c := *b
			return &c, nil
		}
	}
	if id, ok := r.s.byExt[ref]; ok {
		c := *r.s.books[id]
		return &c, nil
	}
	return nil, bookModel.ErrBookNotFound
}

func (r *BookRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]bookModel.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]bookModel.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := r.s.books[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *BookRepo) List(_ context.Context, offset, limit int) ([]bookModel.Book, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := make([]bookModel.Book, 0, len(r.s.order))
	for _, id := range r.s.order {
		all = append(all, *r.s.books[id])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []bookModel.Book{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *BookRepo) CreateIfAbsent(_ context.Context, candidates []bookModel.BookCandidate) ([]bookModel.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	created := make([]bookModel.Book, 0, len(candidates))
	for _, c := range candidates {
		if _, exists := r.s.byExt[c.ID]; exists {
			continue
		}
		now := r.s.Now().Add(time.Duration(r.s.seq) * time.Millisecond)
		r.s.seq++
		b := &bookModel.Book{
			ID:          uuid.New(),
			ExternalID:  c.ID,
			Title:       c.Title,
			Authors:     append([]string{}, c.Authors...),
			Description: c.Description,
			Thumbnail:   c.Thumbnail,
			Available:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		r.s.books[b.ID] = b
		r.s.byExt[c.ID] = b.ID
		r.s.order = append(r.s.order, b.ID)
		created = append(created, *b)
	}
	return created, nil
}

func (r *BookRepo) MarkUnavailable(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailMarkUnavailable != nil {
		return false, r.s.FailMarkUnavailable
	}
	b, ok := r.s.books[id]
	if !ok || !b.Available {
		return false, nil
	}
	now := r.s.Now()
	b.Available = false
	b.UnavailableSince = &now
	return true, nil
}

func (r *BookRepo) MarkAvailable(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailMarkAvailable != nil {
		return false, r.s.FailMarkAvailable
	}
	b, ok := r.s.books[id]
	if !ok || b.Available || r.s.ownedLocked(id) {
		return false, nil
	}
	b.Available = true
	b.UnavailableSince = nil
	return true, nil
}

func (r *BookRepo) ReleaseOrphaned(_ context.Context, grace time.Duration) ([]bookModel.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cutoff := r.s.Now().Add(-grace)
	released := make([]bookModel.Book, 0)
	for _, id := range r.s.order {
		b := r.s.books[id]
		if b.Available || b.UnavailableSince == nil || !b.UnavailableSince.Before(cutoff) {
			continue
		}
		if r.s.ownedLocked(id) {
			continue
		}
		b.Available = true
		b.UnavailableSince = nil
		released = append(released, *b)
	}
	return released, nil
}

// UserRepo implements user.Repository.
type UserRepo struct{ s *Store }

var _ user.Repository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return user.ErrEmailAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.Favorites = []uuid.UUID{}
	u.BorrowedBooks = []user.Loan{}
	u.CreatedAt = r.s.Now()
	u.UpdatedAt = u.CreatedAt
	c := cloneUser(u)
	r.s.users[u.ID] = &c
	return nil
}

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = user.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *UserRepo) AppendLoan(_ context.Context, userID uuid.UUID, loan user.Loan) ([]user.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailAppendLoan != nil {
		return nil, r.s.FailAppendLoan
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u.BorrowedBooks = append(u.BorrowedBooks, loan)
	if r.s.FailAfterAppendLoan != nil {
		return nil, r.s.FailAfterAppendLoan
	}
	return append([]user.Loan{}, u.BorrowedBooks...), nil
}

func (r *UserRepo) RemoveLoan(_ context.Context, userID, loanID uuid.UUID) (*user.Loan, []user.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, nil, user.ErrLoanNotFound
	}
	for i, l := range u.BorrowedBooks {
		if l.ID != loanID {
			continue
		}
		removed := l
		u.BorrowedBooks = append(u.BorrowedBooks[:i:i], u.BorrowedBooks[i+1:]...)
		return &removed, append([]user.Loan{}, u.BorrowedBooks...), nil
	}
	return nil, nil, user.ErrLoanNotFound
}

func (r *UserRepo) AddFavorite(_ context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	for _, id := range u.Favorites {
		if id == bookID {
			return append([]uuid.UUID{}, u.Favorites...), nil
		}
	}
	u.Favorites = append(u.Favorites, bookID)
	return append([]uuid.UUID{}, u.Favorites...), nil
}

func (r *UserRepo) RemoveFavorite(_ context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	kept := u.Favorites[:0:0]
	for _, id := range u.Favorites {
		if id != bookID {
			kept = append(kept, id)
		}
	}
	u.Favorites = kept
	return append([]uuid.UUID{}, kept...), nil
}
