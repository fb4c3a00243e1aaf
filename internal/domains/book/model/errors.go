package model

import "library-backend/internal/shared/errs"

var (
	ErrBookNotFound = errs.New(errs.KindNotFound, "BOOK_NOT_FOUND", "book not found")
	ErrEmptyQuery   = errs.New(errs.KindInvalid, "EMPTY_QUERY", "search query is required")
)
