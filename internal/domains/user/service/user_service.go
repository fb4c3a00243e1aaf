package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/user"
	"library-backend/internal/shared/errs"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = 12

// TokenIssuer signs access and refresh tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	AccessExpiry() time.Duration
}

// BookLookup resolves favorites and loans into books.
type BookLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]bookModel.Book, error)
}

type userService struct {
	repo   user.Repository
	books  BookLookup
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewUserService(repo user.Repository, books BookLookup, tokens TokenIssuer) user.Service {
	return &userService{
		repo:   repo,
		books:  books,
		tokens: tokens,
		cost:   defaultBcryptCost,
		now:    time.Now,
	}
}

func (s *userService) Register(ctx context.Context, req user.RegisterRequest) (*user.UserDTO, error) {
	req.Email = user.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, errs.FromValidation(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         user.RoleStudent,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	dto := u.ToDTO()
	return &dto, nil
}

func (s *userService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	req.Email = user.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, errs.FromValidation(err)
	}

	u, err := s.repo.FindByEmail(ctx, req.Email)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, user.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, user.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.GenerateAccessToken(u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(u.ID.String())
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &user.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(s.tokens.AccessExpiry()),
		User:         u.ToDTO(),
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*user.Profile, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := append(append([]uuid.UUID{}, u.Favorites...), user.LoanBookIDs(u.BorrowedBooks)...)
	books, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]bookModel.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	favorites := make([]bookModel.Book, 0, len(u.Favorites))
	for _, id := range u.Favorites {
		if b, ok := byID[id]; ok {
			favorites = append(favorites, b)
		}
	}

	return &user.Profile{
		UserDTO:       u.ToDTO(),
		Favorites:     favorites,
		BorrowedBooks: user.ExpandLoans(u.BorrowedBooks, books),
	}, nil
}
