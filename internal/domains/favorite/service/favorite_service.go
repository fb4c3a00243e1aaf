package service

import (
	"context"
	"errors"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/user"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ServiceInterface is the Favorites Manager.
type ServiceInterface interface {
	AddFavorite(ctx context.Context, userID uuid.UUID, bookRef string) ([]uuid.UUID, error)
	RemoveFavorite(ctx context.Context, userID uuid.UUID, bookRef string) ([]uuid.UUID, error)
}

type BookResolver interface {
	FindByRef(ctx context.Context, ref string) (*bookModel.Book, error)
}

type FavoriteStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	AddFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error)
	RemoveFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error)
}

type FavoriteService struct {
	books BookResolver
	users FavoriteStore
}

func NewService(books BookResolver, users FavoriteStore) *FavoriteService {
	return &FavoriteService{books: books, users: users}
}

var _ ServiceInterface = (*FavoriteService)(nil)

// AddFavorite has set semantics: adding a present book is a no-op.
// Unknown books are rejected with ErrBookNotFound.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID uuid.UUID, bookRef string) ([]uuid.UUID, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	b, err := s.books.FindByRef(ctx, bookRef)
	if err != nil {
		return nil, err
	}

	favorites, err := s.users.AddFavorite(ctx, userID, b.ID)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("user_id", userID.String()).Str("book_id", b.ID.String()).Msg("favorite added")
	return favorites, nil
}

// RemoveFavorite is a no-op when the book is not in the set. A uuid ref is
// removed even if the book no longer resolves.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, userID uuid.UUID, bookRef string) ([]uuid.UUID, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	bookID, err := uuid.Parse(bookRef)
	if err != nil {
		b, ferr := s.books.FindByRef(ctx, bookRef)
		if errors.Is(ferr, bookModel.ErrBookNotFound) {
			return u.Favorites, nil
		}
		if ferr != nil {
			return nil, ferr
		}
		bookID = b.ID
	}

	return s.users.RemoveFavorite(ctx, userID, bookID)
}
