package handler

import (
	"net/http"

	"library-backend/internal/domains/favorite/model"
	"library-backend/internal/domains/favorite/service"
	"library-backend/internal/shared/errs"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// AddFavorite - POST /books/favorites
func (h *Handler) AddFavorite(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, errs.Invalid("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		response.Fail(c, errs.FromValidation(err))
		return
	}

	favorites, err := h.service.AddFavorite(c.Request.Context(), identity.UserID, req.BookID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, model.FavoritesResponse{Favorites: favorites})
}

// RemoveFavorite - DELETE /books/favorites/:bookId
func (h *Handler) RemoveFavorite(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	favorites, err := h.service.RemoveFavorite(c.Request.Context(), identity.UserID, c.Param("bookId"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, model.FavoritesResponse{Favorites: favorites})
}
