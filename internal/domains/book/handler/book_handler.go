package handler

import (
	"net/http"
	"strconv"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/service"
	"library-backend/internal/shared/errs"
	"library-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ListBooks - GET /books?page=
func (h *Handler) ListBooks(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			page = p
		}
	}

	result, err := h.service.ListBooks(c.Request.Context(), page)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, result.Books, &response.Meta{
		CurrentPage: result.CurrentPage,
		PageSize:    model.PageSize,
		TotalPages:  result.TotalPages,
		Total:       result.Total,
	})
}

// GetBook - GET /books/:id, id is the internal uuid or the external id
func (h *Handler) GetBook(c *gin.Context) {
	b, err := h.service.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// SearchExternal - GET /books/fetch?q=
func (h *Handler) SearchExternal(c *gin.Context) {
	books, err := h.service.SearchExternal(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"books": books})
}

// FetchAndImport - POST /books/fetch?q=
func (h *Handler) FetchAndImport(c *gin.Context) {
	created, err := h.service.FetchAndImport(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, model.ImportResult{Created: created, Count: len(created)})
}

// SaveBooks - POST /books/save
func (h *Handler) SaveBooks(c *gin.Context) {
	var req model.SaveBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errs.Invalid("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		response.Fail(c, errs.FromValidation(err))
		return
	}

	created, err := h.service.ImportOrUpsert(c.Request.Context(), req.Books)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, model.ImportResult{Created: created, Count: len(created)})
}
