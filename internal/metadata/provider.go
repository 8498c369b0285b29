package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/metrics"
)

// Provider is a named metadata source.
type Provider interface {
	catalog.MetadataFetcher
	Name() string
}

// Outcome labels used for fetch metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// CheckURL rejects anything that is not an absolute http(s) URL.
func CheckURL(raw string) error {
	if !catalog.IsHTTPURL(raw) {
		return fmt.Errorf("%w: url must start with http:// or https://", catalog.ErrInvalidInput)
	}
	return nil
}

// OutcomeOf maps a fetch error to its metrics label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, catalog.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, catalog.ErrMetadataUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeFailed
	}
}

// Observe records a completed fetch.
func Observe(provider string, started time.Time, err error) {
	metrics.ObserveMetadataFetch(provider, OutcomeOf(err), time.Since(started))
}

// Trimmed returns md with surrounding whitespace removed.
func Trimmed(md catalog.Metadata) catalog.Metadata {
	return catalog.Metadata{
		Title:    strings.TrimSpace(md.Title),
		ImageURL: strings.TrimSpace(md.ImageURL),
	}
}

// Chain tries providers in order, moving on only when a provider could not
// produce metadata. Invalid input stops the chain.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a Chain. At least one provider is required.
func NewChain(logger *zap.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("metadata chain requires at least one provider")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, logger: logger}, nil
}

// Name implements Provider.
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Fetch implements catalog.MetadataFetcher.
func (c *Chain) Fetch(ctx context.Context, url string) (catalog.Metadata, error) {
	if err := CheckURL(url); err != nil {
		return catalog.Metadata{}, err
	}
	var lastErr error
	for _, p := range c.providers {
		md, err := p.Fetch(ctx, url)
		if err == nil {
			return md, nil
		}
		if !errors.Is(err, catalog.ErrMetadataUnavailable) && !errors.Is(err, catalog.ErrFetchFailed) {
			return catalog.Metadata{}, err
		}
		c.logger.Debug("metadata provider missed",
			zap.String("provider", p.Name()),
			zap.String("url", url),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return catalog.Metadata{}, lastErr
}
