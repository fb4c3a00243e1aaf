package handler

import (
	"net/http"

	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared/errs"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Borrow - POST /books/borrow. The borrower is always the authenticated user.
func (h *Handler) Borrow(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errs.Invalid("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		response.Fail(c, errs.FromValidation(err))
		return
	}
	returnDate, err := req.ParsedReturnDate()
	if err != nil {
		response.Fail(c, err)
		return
	}

	ledger, err := h.service.Borrow(c.Request.Context(), identity.UserID, req.BookID, returnDate)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"borrowedBooks": ledger})
}

// Return - POST /loans/:loanId/return
func (h *Handler) Return(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	loanID, err := uuid.Parse(c.Param("loanId"))
	if err != nil {
		response.Fail(c, errs.Invalid("invalid loan id"))
		return
	}

	ledger, err := h.service.Return(c.Request.Context(), identity.UserID, loanID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"borrowedBooks": ledger})
}

// ListLoans - GET /users/:id/loans
func (h *Handler) ListLoans(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, errs.Invalid("invalid user id"))
		return
	}

	loans, err := h.service.ListLoans(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, loans)
}

// Reconcile - POST /admin/reconcile
func (h *Handler) Reconcile(c *gin.Context) {
	released, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, model.ReconcileResult{Released: released, Count: len(released)})
}
