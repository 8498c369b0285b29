// Package headless reads link previews from pages rendered by headless Chrome.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/metadata"
	"github.com/JakeFAU/affiliate-catalog/internal/ratelimit"
)

// previewScript collects the same tags the OpenGraph provider reads, after scripts have run.
const previewScript = `(() => {
  const pick = (sels) => {
    for (const s of sels) {
      const el = document.querySelector(s);
      const v = el && (el.getAttribute('content') || el.textContent);
      if (v && v.trim()) return v.trim();
    }
    return '';
  };
  const image = pick(['meta[property="og:image"]', 'meta[property="og:image:url"]', 'meta[name="twitter:image"]']);
  return {
    title: pick(['meta[property="og:title"]', 'meta[name="twitter:title"]', 'head > title']),
    image_url: image ? new URL(image, document.baseURI).href : '',
  };
})()`

// Config controls the behavior of the headless provider.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	Limiter           *ratelimit.Limiter
}

// Provider implements metadata.Provider using chromedp.
type Provider struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a headless provider backed by chromedp. Chrome is started lazily on first use.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Provider{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Name implements metadata.Provider.
func (p *Provider) Name() string { return "headless" }

// Close cancels the allocator context.
func (p *Provider) Close() {
	p.allocCancel()
}

// Fetch navigates with a headless browser and reads preview tags from the rendered DOM.
func (p *Provider) Fetch(ctx context.Context, url string) (md catalog.Metadata, err error) {
	if err := metadata.CheckURL(url); err != nil {
		return catalog.Metadata{}, err
	}
	start := time.Now()
	defer func() { metadata.Observe(p.Name(), start, err) }()

	if err := p.cfg.Limiter.Wait(ctx, url); err != nil {
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}
	if err := p.acquire(ctx); err != nil {
		return catalog.Metadata{}, fmt.Errorf("%w: %v", catalog.ErrFetchFailed, err)
	}
	defer p.release()

	taskCtx, taskCancel := chromedp.NewContext(p.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, p.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	status := &documentStatus{}
	chromedp.ListenTarget(taskCtx, status.captureEvent)

	var result catalog.Metadata
	if err := chromedp.Run(taskCtx, p.actions(url, &result)...); err != nil {
		p.logger.Debug("headless render failed", zap.String("url", url), zap.Error(err))
		return catalog.Metadata{}, fmt.Errorf("%w: chromedp run: %v", catalog.ErrFetchFailed, err)
	}
	if code := status.get(); code >= http.StatusBadRequest {
		return catalog.Metadata{}, fmt.Errorf("%w: page returned %d", catalog.ErrFetchFailed, code)
	}
	result = metadata.Trimmed(result)
	if result.Empty() {
		return catalog.Metadata{}, fmt.Errorf("%w: no preview tags on rendered page", catalog.ErrMetadataUnavailable)
	}
	return result, nil
}

func (p *Provider) actions(url string, out *catalog.Metadata) []chromedp.Action {
	return []chromedp.Action{
		p.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Evaluate(previewScript, out),
	}
}

func (p *Provider) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if p.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(p.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (p *Provider) acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	select {
	case p.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (p *Provider) release() {
	if p.limiter == nil {
		return
	}
	select {
	case <-p.limiter:
	default:
	}
}

// documentStatus records the HTTP status of the main document.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	d.mu.Lock()
	if d.status == 0 {
		d.status = int(resp.Response.Status)
	}
	d.mu.Unlock()
}

func (d *documentStatus) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}
