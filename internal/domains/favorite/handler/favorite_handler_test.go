package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"library-backend/internal/domains/favorite/service"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/testutil/memstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type favoritesEnvelope struct {
	Data struct {
		Favorites []uuid.UUID `json:"favorites"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(store *memstore.Store, as *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(service.NewService(store.Books(), store.Users()))

	r := gin.New()
	gate := func(c *gin.Context) {
		if as != nil {
			middleware.SetIdentity(c, middleware.Identity{UserID: *as})
		}
		c.Next()
	}
	r.POST("/books/favorites", gate, h.AddFavorite)
	r.DELETE("/books/favorites/:bookId", gate, h.RemoveFavorite)
	return r
}

func send(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, favoritesEnvelope) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env favoritesEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestFavorites_AddTwiceThenRemove(t *testing.T) {
	store := memstore.New()
	u := store.SeedUser("U1", "u1@example.com")
	b := store.SeedBook("B1", "Dune", true)
	r := newRouter(store, &u.ID)

	for i := 0; i < 2; i++ {
		w, env := send(r, http.MethodPost, "/books/favorites", `{"bookId":"B1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []uuid.UUID{b.ID}, env.Data.Favorites)
	}

	w, env := send(r, http.MethodDelete, "/books/favorites/"+b.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.Data.Favorites)
}

func TestFavorites_Errors(t *testing.T) {
	store := memstore.New()
	u := store.SeedUser("U1", "u1@example.com")
	ghost := uuid.New()

	tests := []struct {
		name   string
		as     *uuid.UUID
		body   string
		status int
	}{
		{"no identity", nil, `{"bookId":"B1"}`, http.StatusUnauthorized},
		{"missing book id", &u.ID, `{}`, http.StatusBadRequest},
		{"malformed body", &u.ID, `{`, http.StatusBadRequest},
		{"unknown book", &u.ID, `{"bookId":"nope"}`, http.StatusNotFound},
		{"unknown user", &ghost, `{"bookId":"nope"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := send(newRouter(store, tt.as), http.MethodPost, "/books/favorites", tt.body)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
		})
	}
}
