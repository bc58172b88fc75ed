package books

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/validation"
)

// ListFilter narrows a catalog listing. Zero values mean "no
// constraint"; all present constraints must hold (AND semantics).
type ListFilter struct {
	Author         string // exact match
	AuthorContains string // case-insensitive substring
	Year           int    // publish year
	Month          int    // publish month
	Day            int    // publish day of month
	StartDate      *time.Time
	EndDate        *time.Time
}

// ParseListFilter builds a filter from list query parameters. Malformed
// values are reported, not silently dropped.
func ParseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	f := ListFilter{
		Author:         q.Get("author"),
		AuthorContains: q.Get("author_contains"),
	}

	var err error
	if f.Year, err = queryInt(q.Get("year"), "year"); err != nil {
		return ListFilter{}, err
	}
	if f.Month, err = queryInt(q.Get("month"), "month"); err != nil {
		return ListFilter{}, err
	}
	if f.Day, err = queryInt(q.Get("day"), "day"); err != nil {
		return ListFilter{}, err
	}
	if f.StartDate, err = queryDate(q.Get("start_date"), "start_date"); err != nil {
		return ListFilter{}, err
	}
	if f.EndDate, err = queryDate(q.Get("end_date"), "end_date"); err != nil {
		return ListFilter{}, err
	}

	return f, nil
}

// Matches reports whether a book satisfies every present constraint.
// Used by the in-memory backend; the postgres backend translates the
// same constraints to SQL.
func (f ListFilter) Matches(b *Book) bool {
	if f.Author != "" && b.Author != f.Author {
		return false
	}
	if f.AuthorContains != "" &&
		!strings.Contains(strings.ToLower(b.Author), strings.ToLower(f.AuthorContains)) {
		return false
	}
	if f.Year != 0 && b.PublishDate.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(b.PublishDate.Month()) != f.Month {
		return false
	}
	if f.Day != 0 && b.PublishDate.Day() != f.Day {
		return false
	}
	if f.StartDate != nil && b.PublishDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && b.PublishDate.After(*f.EndDate) {
		return false
	}
	return true
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", name, raw)
	}
	return val, nil
}

func queryDate(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	val, err := time.Parse(validation.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date for query param %s: use YYYY-MM-DD", name)
	}
	return &val, nil
}
