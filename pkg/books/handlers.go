package books

import (
	"errors"
	"net/http"

	"github.com/giabaovo/resola-code-challenge/pkg/httputil"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
	"github.com/giabaovo/resola-code-challenge/pkg/validation"
)

// Handlers exposes the catalog endpoints
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates the catalog handler set
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishDate string `json:"publish_date"`
	ISBN        string `json:"isbn"`
	Price       string `json:"price"`
}

func (r bookRequest) input() validation.BookInput {
	return validation.BookInput{
		Title:       r.Title,
		Author:      r.Author,
		PublishDate: r.PublishDate,
		ISBN:        r.ISBN,
		Price:       r.Price,
	}
}

// List handles GET /api/books/
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseListFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("book listing failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"books": ResponseList(list),
	})
}

// Get handles GET /api/book/{id}/
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			httputil.WriteNotFoundError(w, "Book not found")
			return
		}
		h.logger.WithError(err).Error("book fetch failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, book.Response())
}

// Create handles POST /api/book/create/ (authenticated)
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if errs := validation.ValidateBook(req.input()); errs.HasErrors() {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	book, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		h.logger.WithError(err).Error("book creation failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithField("book_id", book.ID).Info("book created")
	httputil.WriteCreated(w, book.Response())
}

// Update handles PUT /api/book/update/{id}/ (authenticated). The update
// is full-replace: every field is validated and written.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req bookRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if errs := validation.ValidateBook(req.input()); errs.HasErrors() {
		httputil.WriteFieldErrors(w, errs)
		return
	}

	book, err := h.service.Update(r.Context(), id, req.input())
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			httputil.WriteNotFoundError(w, "Book not found")
			return
		}
		h.logger.WithError(err).Error("book update failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, book.Response())
}

// Delete handles DELETE /api/book/delete/{id}/ (authenticated)
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			httputil.WriteNotFoundError(w, "Book not found")
			return
		}
		h.logger.WithError(err).Error("book deletion failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithField("book_id", id).Info("book deleted")
	httputil.WriteNoContent(w)
}
