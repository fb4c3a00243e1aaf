package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// BookCandidate is an import row, from the catalog source or a client.
type BookCandidate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Importable is the filtering predicate applied before any insert.
func (c BookCandidate) Importable() bool {
	return strings.TrimSpace(c.ID) != "" && strings.TrimSpace(c.Title) != ""
}

// PrepareCandidates drops rows that are not importable, defaults authors
// and keeps only the first occurrence of each id.
func PrepareCandidates(candidates []BookCandidate) []BookCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]BookCandidate, 0, len(candidates))

	for _, c := range candidates {
		if !c.Importable() {
			continue
		}
		c.ID = strings.TrimSpace(c.ID)
		c.Title = strings.TrimSpace(c.Title)
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		authors := make([]string, 0, len(c.Authors))
		for _, a := range c.Authors {
			if a = strings.TrimSpace(a); a != "" {
				authors = append(authors, a)
			}
		}
		if len(authors) == 0 {
			authors = []string{UnknownAuthor}
		}
		c.Authors = authors

		out = append(out, c)
	}
	return out
}

// SaveBooksRequest is the body of POST /books/save.
type SaveBooksRequest struct {
	Books []BookCandidate `json:"books"`
}

func (r SaveBooksRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Books, validation.Required.Error("books array is required"), validation.Length(1, 100)),
	)
}

type ImportResult struct {
	Created []Book `json:"created"`
	Count   int    `json:"count"`
}
