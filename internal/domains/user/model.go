package user

import (
	"strings"
	"time"

	bookModel "library-backend/internal/domains/book/model"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// User owns its favorites and its loan ledger.
type User struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	Email         string      `json:"email" db:"email"`
	PasswordHash  string      `json:"-" db:"password_hash"`
	Role          Role        `json:"role" db:"role"`
	Favorites     []uuid.UUID `json:"favorites" db:"favorites"`
	BorrowedBooks []Loan      `json:"borrowedBooks" db:"borrowed_books"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
}

// Loan lives only inside a user's ledger. BookID is a lookup key, never an owner.
type Loan struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"bookId"`
	BorrowedAt time.Time `json:"borrowedAt"`
	ReturnDate time.Time `json:"returnDate"`
}

// LoanDetail is a loan with its book resolved. Book is nil when the
// referenced row cannot be found.
type LoanDetail struct {
	Loan
	Book *bookModel.Book `json:"book"`
}

// UserDTO never carries credentials.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) ToDTO() UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Profile is a user with favorites and loans expanded into books.
type Profile struct {
	UserDTO
	Favorites     []bookModel.Book `json:"favorites"`
	BorrowedBooks []LoanDetail     `json:"borrowedBooks"`
}

// LoanBookIDs lists the distinct books referenced by the ledger.
func LoanBookIDs(loans []Loan) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(loans))
	ids := make([]uuid.UUID, 0, len(loans))
	for _, l := range loans {
		if _, ok := seen[l.BookID]; ok {
			continue
		}
		seen[l.BookID] = struct{}{}
		ids = append(ids, l.BookID)
	}
	return ids
}

// ExpandLoans pairs each loan with its book, keeping ledger order.
func ExpandLoans(loans []Loan, books []bookModel.Book) []LoanDetail {
	byID := make(map[uuid.UUID]*bookModel.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}

	out := make([]LoanDetail, 0, len(loans))
	for _, l := range loans {
		out = append(out, LoanDetail{Loan: l, Book: byID[l.BookID]})
	}
	return out
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
