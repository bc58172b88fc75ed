package books

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giabaovo/resola-code-challenge/pkg/observability"
)

// testRouter wires the catalog handlers onto their real routes so
// mux path variables resolve.
func testRouter() *mux.Router {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(NewService(newFakeBookStore()), logger)

	router := mux.NewRouter()
	router.HandleFunc("/api/books/", handlers.List).Methods(http.MethodGet)
	router.HandleFunc("/api/book/{id}/", handlers.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/book/create/", handlers.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/book/update/{id}/", handlers.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/book/delete/{id}/", handlers.Delete).Methods(http.MethodDelete)
	return router
}

func doJSON(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validBookJSON = `{
	"title": "The Go Programming Language",
	"author": "Alan Donovan",
	"publish_date": "2015-10-26",
	"isbn": "9780134190440",
	"price": "39.99"
}`

func TestCreateHandler(t *testing.T) {
	t.Run("valid book", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var body BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotZero(t, body.ID)
		assert.Equal(t, "2015-10-26", body.PublishDate)
		assert.Equal(t, "39.99", body.Price)
	})

	t.Run("short isbn rejected field-scoped", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodPost, "/api/book/create/",
			`{"title": "T", "author": "A", "publish_date": "2020-01-01", "isbn": "123", "price": "9.99"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string][]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{"Length of isbn number must be 13 characters"}, body["isbn"])
	})

	t.Run("multiple invalid fields all reported", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodPost, "/api/book/create/",
			`{"title": "", "author": "", "publish_date": "not-a-date", "isbn": "123", "price": "free"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string][]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		for _, field := range []string{"title", "author", "publish_date", "isbn", "price"} {
			assert.Contains(t, body, field)
		}
	})
}

func TestGetHandler(t *testing.T) {
	t.Run("existing book", func(t *testing.T) {
		router := testRouter()
		created := doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON)
		require.Equal(t, http.StatusCreated, created.Code)

		rec := doJSON(router, http.MethodGet, "/api/book/1/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		var body BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "The Go Programming Language", body.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodGet, "/api/book/42/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error": "Book not found"}`, rec.Body.String())
	})

	t.Run("non-numeric id", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodGet, "/api/book/abc/", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListHandler(t *testing.T) {
	t.Run("empty catalog serializes as empty list", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodGet, "/api/books/", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"books": []}`, rec.Body.String())
	})

	t.Run("filters apply", func(t *testing.T) {
		router := testRouter()
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON).Code)
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/api/book/create/",
				`{"title": "Other", "author": "Rob Pike", "publish_date": "2012-06-01", "isbn": "9781111111111", "price": "29.99"}`).Code)

		rec := doJSON(router, http.MethodGet, "/api/books/?author_contains=pike", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Books []BookResponse `json:"books"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Books, 1)
		assert.Equal(t, "Other", body.Books[0].Title)
	})

	t.Run("malformed filter rejected", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodGet, "/api/books/?year=twenty", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateHandler(t *testing.T) {
	t.Run("replaces fields", func(t *testing.T) {
		router := testRouter()
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON).Code)

		rec := doJSON(router, http.MethodPut, "/api/book/update/1/",
			`{"title": "The Go Programming Language", "author": "Alan Donovan", "publish_date": "2015-10-26", "isbn": "9780134190440", "price": "45.00"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body BookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "45.00", body.Price)
	})

	t.Run("unknown id", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodPut, "/api/book/update/42/", validBookJSON)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation still applies", func(t *testing.T) {
		router := testRouter()
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON).Code)

		rec := doJSON(router, http.MethodPut, "/api/book/update/1/",
			`{"title": "T", "author": "A", "publish_date": "2020-01-01", "isbn": "short", "price": "9.99"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteHandler(t *testing.T) {
	t.Run("delete then fetch", func(t *testing.T) {
		router := testRouter()
		require.Equal(t, http.StatusCreated,
			doJSON(router, http.MethodPost, "/api/book/create/", validBookJSON).Code)

		rec := doJSON(router, http.MethodDelete, "/api/book/delete/1/", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(router, http.MethodGet, "/api/book/1/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		router := testRouter()

		rec := doJSON(router, http.MethodDelete, "/api/book/delete/42/", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
