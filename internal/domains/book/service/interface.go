package service

import (
	"context"

	"library-backend/internal/domains/book/model"
)

// ServiceInterface is the catalog service.
type ServiceInterface interface {
	ImportOrUpsert(ctx context.Context, candidates []model.BookCandidate) ([]model.Book, error)
	ListBooks(ctx context.Context, page int) (*model.BookPage, error)
	GetBook(ctx context.Context, ref string) (*model.Book, error)
	SearchExternal(ctx context.Context, query string) ([]model.BookCandidate, error)
	FetchAndImport(ctx context.Context, query string) ([]model.Book, error)
}

// CatalogSource looks up candidates in an external catalog.
type CatalogSource interface {
	Search(ctx context.Context, query string) ([]model.BookCandidate, error)
}
