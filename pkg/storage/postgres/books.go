package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

const bookColumns = `id, title, author, publish_date, isbn, price, created_at, updated_at`

// CreateBook persists a new catalog entry
func (s *Store) CreateBook(ctx context.Context, book *books.Book) (*books.Book, error) {
	start := time.Now()

	created := *book
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO books (title, author, publish_date, isbn, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		book.Title, book.Author, book.PublishDate, book.ISBN, book.Price,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	s.observe("create_book", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &created, nil
}

// GetBookByID fetches a catalog entry, consulting the cache first
func (s *Store) GetBookByID(ctx context.Context, id int64) (*books.Book, error) {
	if s.cache != nil {
		if book, ok := s.cache.GetBook(ctx, id); ok {
			return book, nil
		}
	}

	start := time.Now()
	book, err := scanBook(s.db.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE id = $1`,
		id,
	))
	s.observe("get_book", start, ignoreNotFound(err))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetBook(ctx, book)
	}
	return book, nil
}

// UpdateBook replaces the mutable fields of an existing entry
func (s *Store) UpdateBook(ctx context.Context, book *books.Book) (*books.Book, error) {
	start := time.Now()

	updated := *book
	err := s.db.QueryRowContext(ctx, `
		UPDATE books
		SET title = $1, author = $2, publish_date = $3, isbn = $4, price = $5, updated_at = now()
		WHERE id = $6
		RETURNING created_at, updated_at`,
		book.Title, book.Author, book.PublishDate, book.ISBN, book.Price, book.ID,
	).Scan(&updated.CreatedAt, &updated.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("update_book", start, nil)
			return nil, storage.ErrNotFound
		}
		s.observe("update_book", start, err)
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	s.observe("update_book", start, nil)

	if s.cache != nil {
		s.cache.DeleteBook(ctx, updated.ID)
	}
	return &updated, nil
}

// DeleteBook removes a catalog entry
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	start := time.Now()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM books
		WHERE id = $1`,
		id,
	)
	s.observe("delete_book", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if s.cache != nil {
		s.cache.DeleteBook(ctx, id)
	}
	return nil
}

// ListBooks returns entries matching the filter, ordered by id. The
// WHERE clause is assembled from the present constraints only.
func (s *Store) ListBooks(ctx context.Context, filter books.ListFilter) ([]*books.Book, error) {
	query, args := buildListQuery(filter)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.observe("list_books", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var list []*books.Book
	for rows.Next() {
		var book books.Book
		err := rows.Scan(
			&book.ID, &book.Title, &book.Author, &book.PublishDate,
			&book.ISBN, &book.Price, &book.CreatedAt, &book.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		list = append(list, &book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return list, nil
}

func buildListQuery(filter books.ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Author != "" {
		conditions = append(conditions, "author = "+arg(filter.Author))
	}
	if filter.AuthorContains != "" {
		conditions = append(conditions, "author ILIKE "+arg("%"+filter.AuthorContains+"%"))
	}
	if filter.Year != 0 {
		conditions = append(conditions, "EXTRACT(YEAR FROM publish_date) = "+arg(filter.Year))
	}
	if filter.Month != 0 {
		conditions = append(conditions, "EXTRACT(MONTH FROM publish_date) = "+arg(filter.Month))
	}
	if filter.Day != 0 {
		conditions = append(conditions, "EXTRACT(DAY FROM publish_date) = "+arg(filter.Day))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "publish_date >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "publish_date <= "+arg(*filter.EndDate))
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	return query, args
}

func scanBook(row *sql.Row) (*books.Book, error) {
	var book books.Book
	err := row.Scan(
		&book.ID, &book.Title, &book.Author, &book.PublishDate,
		&book.ISBN, &book.Price, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return &book, nil
}
