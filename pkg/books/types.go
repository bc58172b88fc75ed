package books

import (
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/validation"
)

// Book is a catalog entry. Price stays a decimal string end to end so
// values like "19.99" round-trip without float drift.
type Book struct {
	ID          int64
	Title       string
	Author      string
	PublishDate time.Time
	ISBN        string
	Price       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookResponse is the wire form of a catalog entry
type BookResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishDate string `json:"publish_date"`
	ISBN        string `json:"isbn"`
	Price       string `json:"price"`
}

// Response converts a book to its wire form
func (b *Book) Response() BookResponse {
	return BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		PublishDate: b.PublishDate.Format(validation.DateLayout),
		ISBN:        b.ISBN,
		Price:       b.Price,
	}
}

// ResponseList converts a slice of books to wire form. Always returns a
// non-nil slice so an empty catalog serializes as [] rather than null.
func ResponseList(list []*Book) []BookResponse {
	out := make([]BookResponse, 0, len(list))
	for _, b := range list {
		out = append(out, b.Response())
	}
	return out
}
