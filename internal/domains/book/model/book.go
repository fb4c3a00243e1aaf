package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	// PageSize is fixed for catalog listing.
	PageSize = 8

	UnknownAuthor = "Unknown Author"

	CacheListPattern = "books:list:*"
	ListCacheTTL     = 5 * time.Minute
	DetailCacheTTL   = 10 * time.Minute
)

// Book is a catalog entry. Available is the only contended field.
type Book struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	ExternalID       string         `json:"externalId" db:"external_id"`
	Title            string         `json:"title" db:"title"`
	Authors          pq.StringArray `json:"authors" db:"authors"`
	Description      string         `json:"description,omitempty" db:"description"`
	Thumbnail        string         `json:"thumbnail,omitempty" db:"thumbnail"`
	Available        bool           `json:"available" db:"available"`
	UnavailableSince *time.Time     `json:"unavailableSince,omitempty" db:"unavailable_since"`
	CreatedAt        time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time      `json:"-" db:"updated_at"`
}

// BookPage is one page of the catalog listing.
type BookPage struct {
	Books       []Book `json:"books"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	Total       int    `json:"total"`
}

func CacheKeyList(page int) string {
	return fmt.Sprintf("books:list:%d", page)
}

func CacheKeyDetail(ref string) string {
	return "books:detail:" + ref
}

// DetailKeyFor maps a request ref to the key GetBook caches it under.
// Any uuid spelling collapses to its canonical form.
func DetailKeyFor(ref string) string {
	if id, err := uuid.Parse(ref); err == nil {
		return CacheKeyDetail(id.String())
	}
	return CacheKeyDetail(ref)
}

// HasCacheKey reports whether key is one of the keys invalidated for b.
func (b *Book) HasCacheKey(key string) bool {
	for _, k := range b.CacheKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// CacheKeys lists every detail key a book may be cached under.
func (b *Book) CacheKeys() []string {
	keys := []string{CacheKeyDetail(b.ID.String())}
	if b.ExternalID != "" {
		keys = append(keys, CacheKeyDetail(b.ExternalID))
	}
	return keys
}

// TotalPages is ceil(total / PageSize).
func TotalPages(total int) int {
	return (total + PageSize - 1) / PageSize
}

// NormalizePage clamps page numbers below 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
