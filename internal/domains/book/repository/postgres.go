package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/shared/errs"
	"library-backend/pkg/database"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const booksTable = "books"

var (
	qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	bookColumns = []string{
		"id", "external_id", "title", "authors", "description", "thumbnail",
		"available", "unavailable_since", "created_at", "updated_at",
	}
)

// ownedByLoan matches when any ledger still references books.id.
const ownedByLoan = `EXISTS (
	SELECT 1 FROM users u
	WHERE u.borrowed_books @> jsonb_build_array(jsonb_build_object('bookId', books.id::text))
)`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*model.Book, error) {
	var b model.Book
	var authors []string
	err := row.Scan(
		&b.ID, &b.ExternalID, &b.Title, &authors, &b.Description, &b.Thumbnail,
		&b.Available, &b.UnavailableSince, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Authors = authors
	return &b, nil
}

func collectBooks(rows pgx.Rows) ([]model.Book, error) {
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

func (r *postgresRepository) findOne(ctx context.Context, where sq.Sqlizer) (*model.Book, error) {
	query, args, err := qb.Select(bookColumns...).
		From(booksTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find book query: %w", err)
	}

	b, err := scanBook(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrBookNotFound
	}
	if err != nil {
		return nil, errs.Storage("find book", err)
	}
	return b, nil
}

func (r *postgresRepository) FindByRef(ctx context.Context, ref string) (*model.Book, error) {
	if id, err := uuid.Parse(ref); err == nil {
		b, err := r.findOne(ctx, sq.Eq{"id": id})
		if !errors.Is(err, model.ErrBookNotFound) {
			return b, err
		}
	}
	return r.findOne(ctx, sq.Eq{"external_id": ref})
}

func (r *postgresRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}

	query, args, err := qb.Select(bookColumns...).
		From(booksTable).
		Where("id = ANY(?)", ids).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find books query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage("find books by ids", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, errs.Storage("scan books", err)
	}
	return books, nil
}

func (r *postgresRepository) List(ctx context.Context, offset, limit int) ([]model.Book, int, error) {
	countQuery, _, err := qb.Select("COUNT(*)").From(booksTable).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, errs.Storage("count books", err)
	}
	if total == 0 {
		return []model.Book{}, 0, nil
	}

	query, args, err := qb.Select(bookColumns...).
		From(booksTable).
		OrderBy("created_at", "id").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errs.Storage("list books", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, errs.Storage("scan books", err)
	}
	return books, total, nil
}

func (r *postgresRepository) CreateIfAbsent(ctx context.Context, candidates []model.BookCandidate) ([]model.Book, error) {
	if len(candidates) == 0 {
		return []model.Book{}, nil
	}

	returning := "ON CONFLICT (external_id) DO NOTHING RETURNING " + strings.Join(bookColumns, ", ")

	created, err := database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]model.Book, error) {
		out := make([]model.Book, 0, len(candidates))
		for _, c := range candidates {
			query, args, err := qb.Insert(booksTable).
				Columns("external_id", "title", "authors", "description", "thumbnail").
				Values(c.ID, c.Title, c.Authors, c.Description, c.Thumbnail).
				Suffix(returning).
				ToSql()
			if err != nil {
				return nil, fmt.Errorf("build insert query: %w", err)
			}

			b, err := scanBook(tx.QueryRow(ctx, query, args...))
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("insert book %s: %w", c.ID, err)
			}
			out = append(out, *b)
		}
		return out, nil
	})
	if err != nil {
		return nil, errs.Storage("import books", err)
	}
	return created, nil
}

func (r *postgresRepository) MarkUnavailable(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE books
		SET available = FALSE, unavailable_since = NOW(), updated_at = NOW()
		WHERE id = $1 AND available`, id)
	if err != nil {
		return false, errs.Storage("mark book unavailable", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresRepository) MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE books
		SET available = TRUE, unavailable_since = NULL, updated_at = NOW()
		WHERE id = $1 AND NOT available AND NOT `+ownedByLoan, id)
	if err != nil {
		return false, errs.Storage("mark book available", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresRepository) ReleaseOrphaned(ctx context.Context, grace time.Duration) ([]model.Book, error) {
	query, args, err := qb.Update(booksTable).
		Set("available", true).
		Set("unavailable_since", nil).
		Set("updated_at", sq.Expr("NOW()")).
		Where("NOT available").
		Where("unavailable_since < NOW() - ?::interval", fmt.Sprintf("%d milliseconds", grace.Milliseconds())).
		Where("NOT " + ownedByLoan).
		Suffix("RETURNING " + strings.Join(bookColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build release query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Storage("release orphaned books", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, errs.Storage("scan released books", err)
	}
	return books, nil
}
