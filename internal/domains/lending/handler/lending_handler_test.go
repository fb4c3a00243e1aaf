package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared/errs"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/testutil/memstore"
	"library-backend/pkg/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		BorrowedBooks []struct {
			ID     uuid.UUID `json:"id"`
			BookID uuid.UUID `json:"bookId"`
		} `json:"borrowedBooks"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupRouter(t *testing.T, store *memstore.Store, as *uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewService(store.Books(), store.Users(), cache.NewMemoryCache(), nil, service.Config{})
	h := NewHandler(svc)

	r := gin.New()
	gate := func(c *gin.Context) {
		if as != nil {
			middleware.SetIdentity(c, middleware.Identity{UserID: *as, Role: "student"})
		}
		c.Next()
	}
	r.POST("/books/borrow", gate, h.Borrow)
	r.POST("/loans/:loanId/return", gate, h.Return)
	r.GET("/users/:id/loans", h.ListLoans)
	return r
}

func do(r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func due() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
}

func TestBorrowAndReturn(t *testing.T) {
	store := memstore.New()
	u := store.SeedUser("U1", "u1@example.com")
	b := store.SeedBook("B1", "Dune", true)
	r := setupRouter(t, store, &u.ID)

	w, env := do(r, http.MethodPost, "/books/borrow", map[string]string{"bookId": "B1", "returnDate": due()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.Data.BorrowedBooks, 1)
	assert.Equal(t, b.ID, env.Data.BorrowedBooks[0].BookID)
	loanID := env.Data.BorrowedBooks[0].ID

	w, env = do(r, http.MethodPost, "/books/borrow", map[string]string{"bookId": "B1", "returnDate": due()})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "BOOK_UNAVAILABLE", env.Error.Code)

	w, _ = do(r, http.MethodGet, "/users/"+u.ID.String()+"/loans", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(r, http.MethodPost, "/loans/"+loanID.String()+"/return", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, env.Data.BorrowedBooks)

	w, env = do(r, http.MethodPost, "/loans/"+loanID.String()+"/return", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LOAN_NOT_FOUND", env.Error.Code)
}

func TestBorrow_ErrorMapping(t *testing.T) {
	store := memstore.New()
	u := store.SeedUser("U1", "u1@example.com")
	store.SeedBook("B1", "Dune", true)

	tests := []struct {
		name   string
		as     *uuid.UUID
		body   interface{}
		setup  func()
		status int
	}{
		{"no identity", nil, map[string]string{"bookId": "B1", "returnDate": due()}, nil, http.StatusUnauthorized},
		{"missing fields", &u.ID, map[string]string{}, nil, http.StatusBadRequest},
		{"unknown book", &u.ID, map[string]string{"bookId": "nope", "returnDate": due()}, nil, http.StatusNotFound},
		{"too far out", &u.ID, map[string]string{"bookId": "B1", "returnDate": "2999-01-01"}, nil, http.StatusBadRequest},
		{"storage down", &u.ID, map[string]string{"bookId": "B1", "returnDate": due()}, func() {
			store.FailMarkUnavailable = errs.Storage("mark book unavailable", memstore.ErrInjected)
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			w, _ := do(setupRouter(t, store, tt.as), http.MethodPost, "/books/borrow", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusServiceUnavailable {
				assert.NotEmpty(t, w.Header().Get("Retry-After"))
			}
		})
	}
}
