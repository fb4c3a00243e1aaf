package service

import (
	"context"
	"strings"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/repository"
	"library-backend/pkg/cache"

	"github.com/rs/zerolog/log"
)

type BookService struct {
	repo   repository.RepositoryInterface
	cache  cache.Cache
	source CatalogSource
}

func NewService(repo repository.RepositoryInterface, cache cache.Cache, source CatalogSource) ServiceInterface {
	return &BookService{
		repo:   repo,
		cache:  cache,
		source: source,
	}
}

// ImportOrUpsert is insert-only: existing external ids are left untouched.
func (s *BookService) ImportOrUpsert(ctx context.Context, candidates []model.BookCandidate) ([]model.Book, error) {
	prepared := model.PrepareCandidates(candidates)
	if skipped := len(candidates) - len(prepared); skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("import candidates filtered")
	}
	if len(prepared) == 0 {
		return []model.Book{}, nil
	}

	created, err := s.repo.CreateIfAbsent(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		if err := s.cache.DeletePattern(ctx, model.CacheListPattern); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate book list cache")
		}
	}

	log.Info().
		Int("candidates", len(candidates)).
		Int("created", len(created)).
		Msg("catalog import finished")
	return created, nil
}

func (s *BookService) ListBooks(ctx context.Context, page int) (*model.BookPage, error) {
	page = model.NormalizePage(page)
	key := model.CacheKeyList(page)

	var cached model.BookPage
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if found {
		return &cached, nil
	}

	books, total, err := s.repo.List(ctx, (page-1)*model.PageSize, model.PageSize)
	if err != nil {
		return nil, err
	}

	result := &model.BookPage{
		Books:       books,
		CurrentPage: page,
		TotalPages:  model.TotalPages(total),
		Total:       total,
	}

	if err := s.cache.Set(ctx, key, result, model.ListCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return result, nil
}

// GetBook serves detail reads from cache. Entries live only under keys that
// lending invalidates, and a fill is re-checked so a borrow racing the fill
// cannot leave a stale availability behind.
func (s *BookService) GetBook(ctx context.Context, ref string) (*model.Book, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.ErrBookNotFound
	}
	key := model.DetailKeyFor(ref)

	var cached model.Book
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if found {
		return &cached, nil
	}

	b, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !b.HasCacheKey(key) {
		return b, nil
	}

	if err := s.cache.Set(ctx, key, b, model.DetailCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return b, nil
	}

	fresh, err := s.repo.FindByRef(ctx, b.ID.String())
	if err != nil || fresh.Available != b.Available {
		if derr := s.cache.Delete(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("failed to drop stale book cache")
		}
	}
	if err == nil {
		return fresh, nil
	}
	return b, nil
}

func (s *BookService) SearchExternal(ctx context.Context, query string) ([]model.BookCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}
	return s.source.Search(ctx, query)
}

func (s *BookService) FetchAndImport(ctx context.Context, query string) ([]model.Book, error) {
	candidates, err := s.SearchExternal(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.ImportOrUpsert(ctx, candidates)
}
