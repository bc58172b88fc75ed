package books

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/storage"
	"github.com/giabaovo/resola-code-challenge/pkg/validation"
)

// ErrBookNotFound indicates the requested catalog entry does not exist
var ErrBookNotFound = errors.New("book not found")

// BookStore persists catalog entries. Implemented by
// storage.MemoryStore and postgres.Store.
type BookStore interface {
	CreateBook(ctx context.Context, book *Book) (*Book, error)
	GetBookByID(ctx context.Context, id int64) (*Book, error)
	// UpdateBook replaces all mutable fields of the book with the given
	// id; storage.ErrNotFound when it does not exist
	UpdateBook(ctx context.Context, book *Book) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error
	ListBooks(ctx context.Context, filter ListFilter) ([]*Book, error)
}

// Service implements catalog operations over a BookStore
type Service struct {
	store BookStore
}

// NewService creates a catalog service
func NewService(store BookStore) *Service {
	return &Service{store: store}
}

// Create persists a new book from pre-validated input
func (s *Service) Create(ctx context.Context, in validation.BookInput) (*Book, error) {
	book, err := bookFromInput(in)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateBook(ctx, book)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return created, nil
}

// Get fetches a single book by id
func (s *Service) Get(ctx context.Context, id int64) (*Book, error) {
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// Update replaces every mutable field of an existing book
func (s *Service) Update(ctx context.Context, id int64, in validation.BookInput) (*Book, error) {
	book, err := bookFromInput(in)
	if err != nil {
		return nil, err
	}
	book.ID = id

	updated, err := s.store.UpdateBook(ctx, book)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return updated, nil
}

// Delete removes a book by id
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// List returns the books matching the filter
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Book, error) {
	list, err := s.store.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return list, nil
}

// bookFromInput converts validated input to a domain book. The date
// parse cannot fail after validation but the error is still checked.
func bookFromInput(in validation.BookInput) (*Book, error) {
	publishDate, err := time.Parse(validation.DateLayout, in.PublishDate)
	if err != nil {
		return nil, fmt.Errorf("invalid publish date: %w", err)
	}
	return &Book{
		Title:       in.Title,
		Author:      in.Author,
		PublishDate: publishDate,
		ISBN:        in.ISBN,
		Price:       in.Price,
	}, nil
}
