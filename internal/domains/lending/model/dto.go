package model

import (
	"time"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/shared/errs"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var returnDateLayouts = []string{time.RFC3339, "2006-01-02"}

type BorrowRequest struct {
	BookID     string `json:"bookId"`
	ReturnDate string `json:"returnDate"`
}

func (r BorrowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required.Error("bookId is required")),
		validation.Field(&r.ReturnDate,
			validation.Required.Error("returnDate is required"),
			validation.By(func(interface{}) error {
				_, err := parseReturnDate(r.ReturnDate)
				return err
			}),
		),
	)
}

// ParsedReturnDate accepts RFC 3339 or a plain date (midnight UTC).
func (r BorrowRequest) ParsedReturnDate() (time.Time, error) {
	t, err := parseReturnDate(r.ReturnDate)
	if err != nil {
		return time.Time{}, errs.Invalid(err.Error())
	}
	return t, nil
}

func parseReturnDate(raw string) (time.Time, error) {
	for _, layout := range returnDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, validation.NewError("validation_return_date", "returnDate must be YYYY-MM-DD or RFC 3339")
}

type ReconcileResult struct {
	Released []bookModel.Book `json:"released"`
	Count    int              `json:"count"`
}
