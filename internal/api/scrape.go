package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

const (
	msgInvalidURL           = "Invalid URL"
	msgMetadataNotAvailable = "Metadata not available"
	msgFetchFailed          = "Failed to fetch metadata"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

// scrape handles POST /api/scrape: {url} in, {title, image_url} out.
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !catalog.IsHTTPURL(req.URL) {
		writeError(w, http.StatusBadRequest, msgInvalidURL)
		return
	}
	if s.deps.Fetcher == nil {
		s.logger.Error("scrape requested without a metadata provider")
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.metadataTimeout())
	defer cancel()
	md, err := s.deps.Fetcher.Fetch(ctx, req.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, md)
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, msgInvalidURL)
	case errors.Is(err, catalog.ErrMetadataUnavailable):
		writeError(w, http.StatusBadRequest, msgMetadataNotAvailable)
	default:
		s.logger.Error("metadata fetch failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFetchFailed)
	}
}
