package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"library-backend/internal/domains/user"
	"library-backend/internal/shared/errs"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	usersTable = "users"

	pgUniqueViolation = "23505"
)

var (
	qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	userColumns = []string{
		"id", "name", "email", "password_hash", "role",
		"favorites", "borrowed_books", "created_at", "updated_at",
	}
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) user.Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, u *user.User) error {
	query, args, err := qb.Insert(usersTable).
		Columns("name", "email", "password_hash", "role").
		Values(u.Name, u.Email, u.PasswordHash, u.Role).
		Suffix("RETURNING id, favorites, borrowed_books, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user query: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&u.ID, &u.Favorites, &u.BorrowedBooks, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return user.ErrEmailAlreadyExists
		}
		return errs.Storage("create user", err)
	}
	return nil
}

func (r *postgresRepository) findOne(ctx context.Context, where sq.Eq) (*user.User, error) {
	query, args, err := qb.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find user query: %w", err)
	}

	var u user.User
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Favorites, &u.BorrowedBooks, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, errs.Storage("find user", err)
	}
	return &u, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *postgresRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, sq.Eq{"email": user.NormalizeEmail(email)})
}

func (r *postgresRepository) AppendLoan(ctx context.Context, userID uuid.UUID, loan user.Loan) ([]user.Loan, error) {
	payload, err := json.Marshal(loan)
	if err != nil {
		return nil, fmt.Errorf("encode loan: %w", err)
	}

	var ledger []user.Loan
	err = r.pool.QueryRow(ctx, `
		UPDATE users
		SET borrowed_books = borrowed_books || jsonb_build_array($2::jsonb),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING borrowed_books`,
		userID, string(payload),
	).Scan(&ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, errs.Storage("append loan", err)
	}
	return ledger, nil
}

// removeLoanSQL filters the loan out in one statement. The containment
// check is re-evaluated on the locked row, so a concurrent second return
// of the same loan updates nothing.
const removeLoanSQL = `
	WITH target AS (
		SELECT elem
		FROM users u, jsonb_array_elements(u.borrowed_books) AS elem
		WHERE u.id = $1 AND elem->>'id' = $2::text
		LIMIT 1
	)
	UPDATE users u
	SET borrowed_books = COALESCE((
			SELECT jsonb_agg(t.e ORDER BY t.ord)
			FROM jsonb_array_elements(u.borrowed_books) WITH ORDINALITY AS t(e, ord)
			WHERE t.e->>'id' <> $2::text
		), '[]'::jsonb),
		updated_at = NOW()
	WHERE u.id = $1
	  AND u.borrowed_books @> jsonb_build_array(jsonb_build_object('id', $2::text))
	RETURNING (SELECT elem FROM target), u.borrowed_books`

func (r *postgresRepository) RemoveLoan(ctx context.Context, userID, loanID uuid.UUID) (*user.Loan, []user.Loan, error) {
	var (
		removed *user.Loan
		ledger  []user.Loan
	)
	err := r.pool.QueryRow(ctx, removeLoanSQL, userID, loanID.String()).Scan(&removed, &ledger)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, user.ErrLoanNotFound
	}
	if err != nil {
		return nil, nil, errs.Storage("remove loan", err)
	}
	if removed == nil {
		return nil, nil, user.ErrLoanNotFound
	}
	return removed, ledger, nil
}

func (r *postgresRepository) AddFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error) {
	return r.updateFavorites(ctx, "add favorite", `
		UPDATE users
		SET favorites = CASE
				WHEN $2::uuid = ANY(favorites) THEN favorites
				ELSE array_append(favorites, $2::uuid)
			END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING favorites`, userID, bookID)
}

func (r *postgresRepository) RemoveFavorite(ctx context.Context, userID, bookID uuid.UUID) ([]uuid.UUID, error) {
	return r.updateFavorites(ctx, "remove favorite", `
		UPDATE users
		SET favorites = array_remove(favorites, $2::uuid),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING favorites`, userID, bookID)
}

func (r *postgresRepository) updateFavorites(ctx context.Context, op, query string, userID, bookID uuid.UUID) ([]uuid.UUID, error) {
	var favorites []uuid.UUID
	err := r.pool.QueryRow(ctx, query, userID, bookID).Scan(&favorites)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, errs.Storage(op, err)
	}
	return favorites, nil
}
