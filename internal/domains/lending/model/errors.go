package model

import "library-backend/internal/shared/errs"

var (
	// ErrBookUnavailable is a lost race or a book already on loan. Clients
	// pick another book rather than retrying.
	ErrBookUnavailable   = errs.New(errs.KindConflict, "BOOK_UNAVAILABLE", "book is not available")
	ErrInvalidReturnDate = errs.New(errs.KindInvalid, "INVALID_RETURN_DATE", "return date must be between today and the maximum loan period")
)
