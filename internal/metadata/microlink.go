package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/ratelimit"
)

// DefaultMicrolinkEndpoint is the public Microlink API.
const DefaultMicrolinkEndpoint = "https://api.microlink.io"

const maxMicrolinkBody = 1 << 20

// MicrolinkConfig controls the Microlink provider.
type MicrolinkConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// HTTPClient overrides the default client. Tests point this at httptest servers.
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
}

// Microlink fetches link previews from the Microlink API.
type Microlink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
}

type microlinkResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Title string `json:"title"`
		Image *struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"data"`
}

// NewMicrolink builds a Microlink provider.
func NewMicrolink(cfg MicrolinkConfig, logger *zap.Logger) *Microlink {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultMicrolinkEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Microlink{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   client,
		limiter:  cfg.Limiter,
		logger:   logger,
	}
}

// Name implements Provider.
func (m *Microlink) Name() string { return "microlink" }

// Fetch implements catalog.MetadataFetcher.
func (m *Microlink) Fetch(ctx context.Context, rawURL string) (md catalog.Metadata, err error) {
	if err := CheckURL(rawURL); err != nil {
		return catalog.Metadata{}, err
	}
	start := time.Now()
	defer func() { Observe(m.Name(), start, err) }()

	if err := m.limiter.Wait(ctx, m.endpoint); err != nil {
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.requestURL(rawURL), nil)
	if err != nil {
		return catalog.Metadata{}, fmt.Errorf("%w: build request: %v", catalog.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if m.apiKey != "" {
		req.Header.Set("x-api-key", m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warn("microlink request failed", zap.String("url", rawURL), zap.Error(err))
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload microlinkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMicrolinkBody)).Decode(&payload); err != nil {
		m.logger.Warn("microlink response undecodable",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return catalog.Metadata{}, fmt.Errorf("%w: decode response: %v", catalog.ErrFetchFailed, err)
	}
	if payload.Status != "success" || payload.Data == nil {
		return catalog.Metadata{}, fmt.Errorf("%w: microlink status %q", catalog.ErrMetadataUnavailable, payload.Status)
	}

	md.Title = payload.Data.Title
	if payload.Data.Image != nil {
		md.ImageURL = payload.Data.Image.URL
	}
	return Trimmed(md), nil
}

func (m *Microlink) requestURL(target string) string {
	sep := "?"
	if strings.Contains(m.endpoint, "?") {
		sep = "&"
	}
	return m.endpoint + sep + "url=" + url.QueryEscape(target)
}
