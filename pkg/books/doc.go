// Package books implements the catalog: book CRUD over HTTP with
// field-level validation and query-parameter filtering on listings.
package books
