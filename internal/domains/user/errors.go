package user

import "library-backend/internal/shared/errs"

var (
	ErrUserNotFound       = errs.New(errs.KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrEmailAlreadyExists = errs.New(errs.KindConflict, "EMAIL_ALREADY_EXISTS", "email already registered")
	ErrInvalidCredentials = errs.New(errs.KindUnauthenticated, "INVALID_CREDENTIALS", "invalid credentials")
	ErrLoanNotFound       = errs.New(errs.KindNotFound, "LOAN_NOT_FOUND", "loan not found")
)
