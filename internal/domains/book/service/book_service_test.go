package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/shared/errs"
	"library-backend/internal/testutil/memstore"
	"library-backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	candidates []model.BookCandidate
	err        error
	queries    []string
}

func (f *fakeSource) Search(_ context.Context, query string) ([]model.BookCandidate, error) {
	f.queries = append(f.queries, query)
	return f.candidates, f.err
}

func newTestService(t *testing.T) (*BookService, *memstore.Store, *cache.MemoryCache, *fakeSource) {
	t.Helper()
	store := memstore.New()
	c := cache.NewMemoryCache()
	src := &fakeSource{}
	svc := NewService(store.Books(), c, src).(*BookService)
	return svc, store, c, src
}

func TestImportOrUpsert_NoDoubleImport(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	batch := []model.BookCandidate{
		{ID: "B2", Title: "Foo"},
		{ID: "B2", Title: "Foo"},
	}

	first, err := svc.ImportOrUpsert(ctx, batch)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "B2", first[0].ExternalID)
	assert.True(t, first[0].Available)
	assert.Equal(t, []string{model.UnknownAuthor}, []string(first[0].Authors))

	second, err := svc.ImportOrUpsert(ctx, batch)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, store.BookCount())
}

func TestImportOrUpsert_SkipsInvalidAndKeepsExisting(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	store.SeedBook("B1", "Dune", true)

	created, err := svc.ImportOrUpsert(ctx, []model.BookCandidate{
		{ID: "B1", Title: "Dune (retitled)"},
		{ID: "", Title: "missing id"},
		{ID: "B9"},
		{ID: "B3", Title: "Emma", Authors: []string{"Jane Austen"}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "B3", created[0].ExternalID)

	b, err := store.Books().FindByRef(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
}

func TestImportOrUpsert_InvalidatesListCache(t *testing.T) {
	svc, _, c, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListBooks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = svc.ImportOrUpsert(ctx, []model.BookCandidate{{ID: "B1", Title: "Dune"}})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	page, err := svc.ListBooks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListBooks_Pagination(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 17; i++ {
		store.SeedBook(fmt.Sprintf("B%02d", i), fmt.Sprintf("Book %d", i), true)
	}

	tests := []struct {
		name     string
		page     int
		wantPage int
		wantLen  int
	}{
		{"first page", 1, 1, 8},
		{"negative clamps to first", -3, 1, 8},
		{"last partial page", 3, 3, 1},
		{"past the end", 5, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListBooks(ctx, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.CurrentPage)
			assert.Equal(t, 3, page.TotalPages)
			assert.Len(t, page.Books, tt.wantLen)
		})
	}
}

func TestGetBook_ByIDOrExternalID(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seeded := store.SeedBook("B1", "Dune", true)

	byID, err := svc.GetBook(ctx, seeded.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "B1", byID.ExternalID)

	byExt, err := svc.GetBook(ctx, "B1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byExt.ID)

	_, err = svc.GetBook(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrBookNotFound)
}

// flipOnFirstRead lends the book right after the first repository read,
// before GetBook fills the cache.
type flipOnFirstRead struct {
	*memstore.BookRepo
	cache cache.Cache
	reads int
}

func (r *flipOnFirstRead) FindByRef(ctx context.Context, ref string) (*model.Book, error) {
	b, err := r.BookRepo.FindByRef(ctx, ref)
	r.reads++
	if err != nil || r.reads != 1 {
		return b, err
	}
	if _, err := r.MarkUnavailable(ctx, b.ID); err != nil {
		return nil, err
	}
	if err := r.cache.Delete(ctx, b.CacheKeys()...); err != nil {
		return nil, err
	}
	return b, nil
}

func TestGetBook_CacheFillRacingBorrow(t *testing.T) {
	store := memstore.New()
	c := cache.NewMemoryCache()
	seeded := store.SeedBook("B1", "Dune", true)
	repo := &flipOnFirstRead{BookRepo: store.Books(), cache: c}
	svc := NewService(repo, c, &fakeSource{})
	ctx := context.Background()

	first, err := svc.GetBook(ctx, "B1")
	require.NoError(t, err)
	assert.False(t, first.Available)

	again, err := svc.GetBook(ctx, "B1")
	require.NoError(t, err)
	assert.False(t, again.Available)
	assert.Equal(t, seeded.ID, again.ID)
}

func TestGetBook_NonCanonicalUUIDSharesCacheKey(t *testing.T) {
	svc, store, c, _ := newTestService(t)
	ctx := context.Background()
	seeded := store.SeedBook("B1", "Dune", true)

	refs := []string{
		strings.ToUpper(seeded.ID.String()),
		"urn:uuid:" + seeded.ID.String(),
		"{" + seeded.ID.String() + "}",
	}
	for _, ref := range refs {
		b, err := svc.GetBook(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, b.ID)
	}

	require.NoError(t, c.Delete(ctx, seeded.CacheKeys()...))
	assert.Equal(t, 0, c.Len())
}

func TestSearchExternal(t *testing.T) {
	svc, _, _, src := newTestService(t)
	ctx := context.Background()

	_, err := svc.SearchExternal(ctx, "   ")
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
	assert.Empty(t, src.queries)

	src.err = errs.Upstream("google books lookup", errors.New("down"))
	_, err = svc.SearchExternal(ctx, "dune")
	assert.True(t, errs.IsRetryable(err))
}

func TestFetchAndImport(t *testing.T) {
	svc, store, _, src := newTestService(t)
	src.candidates = []model.BookCandidate{
		{ID: "B1", Title: "Dune", Authors: []string{"Frank Herbert"}},
		{ID: "B2", Title: "Dune Messiah"},
	}

	created, err := svc.FetchAndImport(context.Background(), " dune ")
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, []string{"dune"}, src.queries)
	assert.Equal(t, 2, store.BookCount())
}
