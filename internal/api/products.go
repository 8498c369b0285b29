package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/editor"
	"github.com/JakeFAU/affiliate-catalog/internal/storefront"
)

const maxJSONBytes = 64 << 10

type productListResponse struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

type productWriteResponse struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields,omitempty"`
}

// listProducts handles GET /v1/products?q=. Products are newest first; q filters titles.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Store.List(r.Context())
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		products = storefront.Filter(products, q)
	}
	writeJSON(w, http.StatusOK, productListResponse{Products: products, Count: len(products)})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// createProduct handles POST /v1/products with a draft body.
func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var draft editor.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	c := editor.NewCreate(s.editorDeps())
	if err := c.SetDraft(draft); err != nil {
		s.writeDomainError(w, "create product", err)
		return
	}
	id, err := c.SubmitCreate(r.Context())
	if err != nil {
		s.writeDomainError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, productWriteResponse{ID: id})
}

// updateProduct handles PATCH /v1/products/{id}. Fields absent from the body keep their stored values.
func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := editor.NewEdit(r.Context(), s.editorDeps(), id)
	if err != nil {
		s.writeDomainError(w, "load product", err)
		return
	}
	draft := c.Snapshot().Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	if err := c.SetDraft(draft); err != nil {
		s.writeDomainError(w, "update product", err)
		return
	}
	changes, err := c.SubmitUpdate(r.Context())
	if err != nil {
		s.writeDomainError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, productWriteResponse{ID: id, Fields: changes.Fields()})
}

// decodeJSON reads a bounded JSON body into dst, writing the error response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) writeDomainError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
		writeError(w, status, op+" failed")
		return
	}
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]string{"error": verr.Message, "field": verr.Field})
		return
	}
	writeError(w, status, err.Error())
}
