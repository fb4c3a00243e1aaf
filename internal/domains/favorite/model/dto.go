package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type AddFavoriteRequest struct {
	BookID string `json:"bookId"`
}

func (r AddFavoriteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required.Error("bookId is required")),
	)
}

type FavoritesResponse struct {
	Favorites []uuid.UUID `json:"favorites"`
}
