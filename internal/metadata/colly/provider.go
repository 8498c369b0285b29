// Package collymeta reads OpenGraph link previews directly from product pages using gocolly.
package collymeta

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/metadata"
	"github.com/JakeFAU/affiliate-catalog/internal/ratelimit"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Limiter   *ratelimit.Limiter
}

// Provider implements metadata.Provider using the Colly collector.
type Provider struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Name implements metadata.Provider.
func (p *Provider) Name() string { return "opengraph" }

// Fetch visits url and extracts its preview tags.
func (p *Provider) Fetch(ctx context.Context, url string) (md catalog.Metadata, err error) {
	if err := metadata.CheckURL(url); err != nil {
		return catalog.Metadata{}, err
	}
	start := time.Now()
	defer func() { metadata.Observe(p.Name(), start, err) }()

	if err := p.cfg.Limiter.Wait(ctx, url); err != nil {
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}

	var (
		result   catalog.Metadata
		fetchErr error
	)
	collector := p.buildCollector(&result, &fetchErr)
	if err := p.runCollector(ctx, collector, url, &fetchErr); err != nil {
		p.logger.Debug("opengraph visit failed", zap.String("url", url), zap.Error(err))
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}
	result = metadata.Trimmed(result)
	if result.Empty() {
		return catalog.Metadata{}, fmt.Errorf("%w: no preview tags on page", catalog.ErrMetadataUnavailable)
	}
	return result, nil
}

func (p *Provider) buildCollector(result *catalog.Metadata, fetchErr *error) *colly.Collector {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func configureCollectorHooks(hooks collectorHooks, result *catalog.Metadata, fetchErr *error) {
	hooks.OnHTML("html", func(e *colly.HTMLElement) {
		*result = extract(e)
	})
	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

// extract reads og:* tags, then twitter:* tags, then <title>.
func extract(e *colly.HTMLElement) catalog.Metadata {
	title := firstNonEmpty(
		e.ChildAttr(`meta[property="og:title"]`, "content"),
		e.ChildAttr(`meta[name="twitter:title"]`, "content"),
		e.ChildText("head > title"),
	)
	image := firstNonEmpty(
		e.ChildAttr(`meta[property="og:image"]`, "content"),
		e.ChildAttr(`meta[property="og:image:url"]`, "content"),
		e.ChildAttr(`meta[name="twitter:image"]`, "content"),
	)
	if image != "" {
		image = e.Request.AbsoluteURL(image)
	}
	return catalog.Metadata{Title: title, ImageURL: image}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (p *Provider) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
