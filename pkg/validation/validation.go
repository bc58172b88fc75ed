// Package validation enforces field-level invariants before persistence.
// Failures are reported as a field -> messages mapping and are never
// partially applied.
package validation

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the minimum pre-hash password length
	MinPasswordLength = 6
	// ISBNLength is the exact required length of an ISBN
	ISBNLength = 13
	// DateLayout is the wire format for dates
	DateLayout = "2006-01-02"
)

// FieldErrors maps a field name to its validation failure messages
type FieldErrors map[string][]string

// Add appends a message to a field's error list
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Merge folds another error set into this one
func (fe FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		fe[field] = append(fe[field], messages...)
	}
}

// HasErrors reports whether any field failed
func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

// ValidateRegistration checks the registration invariants: a non-empty,
// address-shaped email and a password of at least MinPasswordLength runes.
func ValidateRegistration(email, password string) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(email) == "" {
		errs.Add("email", "This field may not be blank")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Enter a valid email address")
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs.Add("password", "The length of password at least 6 character")
	}

	return errs
}

// BookInput holds the raw book fields submitted for create or update
type BookInput struct {
	Title       string
	Author      string
	PublishDate string
	ISBN        string
	Price       string
}

// ValidateBook checks required book fields, the exact ISBN length, the
// publish date format and that price parses as a decimal.
func ValidateBook(in BookInput) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(in.Title) == "" {
		errs.Add("title", "This field may not be blank")
	}
	if strings.TrimSpace(in.Author) == "" {
		errs.Add("author", "This field may not be blank")
	}

	if in.PublishDate == "" {
		errs.Add("publish_date", "This field may not be blank")
	} else if !validDate(in.PublishDate) {
		errs.Add("publish_date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD")
	}

	if len(in.ISBN) != ISBNLength {
		errs.Add("isbn", "Length of isbn number must be 13 characters")
	}

	if in.Price == "" {
		errs.Add("price", "This field may not be blank")
	} else if _, err := strconv.ParseFloat(in.Price, 64); err != nil {
		errs.Add("price", "A valid number is required")
	}

	return errs
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
