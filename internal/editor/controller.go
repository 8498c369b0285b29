// Package editor implements the admin add/edit workflow for catalog products.
//
// A Controller owns one draft and moves through three states:
//
//	Editing ──submit──▶ Submitting ──ok──▶ Settled
//	   ▲                    │
//	   └──────failure───────┘
//
// Metadata lookups happen while Editing and never change state; a second
// lookup while one is pending is rejected with catalog.ErrBusy.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/clock/system"
	"github.com/JakeFAU/affiliate-catalog/internal/metrics"
)

// State is a controller lifecycle state.
type State int

// Controller states.
const (
	StateEditing State = iota
	StateSubmitting
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode distinguishes the add flow from the edit flow.
type Mode int

// Controller modes.
const (
	ModeCreate Mode = iota
	ModeEdit
)

// Deps are the collaborators a Controller needs. Fetcher and Publisher are optional.
type Deps struct {
	Store     catalog.ProductStore
	Fetcher   catalog.MetadataFetcher
	Publisher catalog.Publisher
	Topic     string
	Clock     catalog.Clock
	Logger    *zap.Logger
}

// Snapshot is a point-in-time copy of controller state for rendering.
type Snapshot struct {
	Mode      Mode
	State     State
	Draft     Draft
	Original  *catalog.Product
	Fetching  bool
	Err       error
	ProductID string
	Fields    []string
}

// Controller drives one add or edit form. It is safe for concurrent use.
type Controller struct {
	deps Deps
	mode Mode

	mu        sync.Mutex
	state     State
	draft     Draft
	original  catalog.Product
	fetching  bool
	lastErr   error
	productID string
	fields    []string
}

// NewCreate returns a controller for the add flow with an empty draft.
func NewCreate(deps Deps) *Controller {
	return &Controller{deps: withDefaults(deps), mode: ModeCreate}
}

// NewEdit loads the product and returns a controller whose draft mirrors it.
func NewEdit(ctx context.Context, deps Deps, id string) (*Controller, error) {
	deps = withDefaults(deps)
	product, err := deps.Store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	return NewEditFrom(deps, product), nil
}

// NewEditFrom returns an edit controller for an already loaded product.
func NewEditFrom(deps Deps, product catalog.Product) *Controller {
	return &Controller{
		deps:      withDefaults(deps),
		mode:      ModeEdit,
		draft:     DraftFrom(product),
		original:  product,
		productID: product.ID,
	}
}

func withDefaults(deps Deps) Deps {
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Logger = deps.Logger.Named("editor")
	return deps
}

// UpdateField sets one draft field by wire name.
func (c *Controller) UpdateField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireEditing(); err != nil {
		return err
	}
	return c.draft.Set(name, value)
}

// SetDraft replaces the whole draft, as when a form is posted.
func (c *Controller) SetDraft(d Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireEditing(); err != nil {
		return err
	}
	c.draft = d
	return nil
}

// RequestMetadata looks up a preview for the draft's affiliate link. Non-empty
// results overwrite the draft title and image; empty results keep what the
// admin typed. On failure the draft is left untouched.
func (c *Controller) RequestMetadata(ctx context.Context) (catalog.Metadata, error) {
	c.mu.Lock()
	if err := c.requireEditing(); err != nil {
		c.mu.Unlock()
		return catalog.Metadata{}, err
	}
	if c.fetching {
		c.mu.Unlock()
		return catalog.Metadata{}, fmt.Errorf("%w: metadata lookup pending", catalog.ErrBusy)
	}
	link := strings.TrimSpace(c.draft.AffiliateLink)
	if !catalog.IsHTTPURL(link) {
		err := fmt.Errorf("%w: enter a valid affiliate link first", catalog.ErrInvalidInput)
		c.lastErr = err
		c.mu.Unlock()
		return catalog.Metadata{}, err
	}
	if c.deps.Fetcher == nil {
		err := fmt.Errorf("%w: no metadata provider configured", catalog.ErrFetchFailed)
		c.lastErr = err
		c.mu.Unlock()
		return catalog.Metadata{}, err
	}
	c.fetching = true
	c.mu.Unlock()

	md, err := c.deps.Fetcher.Fetch(ctx, link)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetching = false
	if stateErr := c.requireEditing(); stateErr != nil {
		return catalog.Metadata{}, stateErr
	}
	if err != nil {
		c.lastErr = err
		c.deps.Logger.Info("metadata lookup failed", zap.String("url", link), zap.Error(err))
		return catalog.Metadata{}, err
	}
	c.lastErr = nil
	if t := strings.TrimSpace(md.Title); t != "" {
		c.draft.Title = t
	}
	if img := strings.TrimSpace(md.ImageURL); img != "" {
		c.draft.ImageURL = img
	}
	return md, nil
}

// SubmitCreate validates the draft and creates the product.
func (c *Controller) SubmitCreate(ctx context.Context) (string, error) {
	draft, err := c.beginSubmit(ModeCreate)
	if err != nil {
		return "", err
	}

	payload := NewProduct(draft)
	if strings.TrimSpace(draft.Price) != "" && payload.Price == nil {
		c.deps.Logger.Warn("price is not numeric, storing without price", zap.String("price", draft.Price))
	}

	id, err := c.deps.Store.Create(ctx, payload)
	if err != nil {
		metrics.ObserveProductWrite("create", "error")
		return "", c.fail("create", writeErr(err))
	}
	metrics.ObserveProductWrite("create", "success")

	c.mu.Lock()
	c.state = StateSettled
	c.productID = id
	c.lastErr = nil
	c.mu.Unlock()

	c.deps.Logger.Info("product created", zap.String("product_id", id))
	c.publish(ctx, catalog.ProductEvent{
		Type:      catalog.EventProductCreated,
		ProductID: id,
		At:        c.deps.Clock.Now(),
	})
	return id, nil
}

// SubmitUpdate validates the draft, computes the changed-field set, and applies it.
func (c *Controller) SubmitUpdate(ctx context.Context) (catalog.Changes, error) {
	draft, err := c.beginSubmit(ModeEdit)
	if err != nil {
		return catalog.Changes{}, err
	}

	c.mu.Lock()
	original := c.original
	c.mu.Unlock()

	changes := BuildChanges(draft, original, c.deps.Clock.Now())
	if changes.OptionalCount() == 0 {
		c.mu.Lock()
		c.state = StateEditing
		c.lastErr = catalog.ErrNoChanges
		c.mu.Unlock()
		return catalog.Changes{}, catalog.ErrNoChanges
	}

	if err := c.deps.Store.Update(ctx, original.ID, changes); err != nil {
		metrics.ObserveProductWrite("update", "error")
		return catalog.Changes{}, c.fail("update", writeErr(err))
	}
	metrics.ObserveProductWrite("update", "success")

	fields := changes.Fields()
	c.mu.Lock()
	c.state = StateSettled
	c.original = changes.Apply(original, changes.UpdatedAt)
	c.fields = fields
	c.lastErr = nil
	c.mu.Unlock()

	c.deps.Logger.Info("product updated", zap.String("product_id", original.ID), zap.Strings("fields", fields))
	c.publish(ctx, catalog.ProductEvent{
		Type:      catalog.EventProductUpdated,
		ProductID: original.ID,
		Fields:    fields,
		At:        changes.UpdatedAt,
	})
	return changes, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Mode:      c.mode,
		State:     c.state,
		Draft:     c.draft,
		Fetching:  c.fetching,
		Err:       c.lastErr,
		ProductID: c.productID,
		Fields:    append([]string(nil), c.fields...),
	}
	if c.mode == ModeEdit {
		original := c.original
		s.Original = &original
	}
	return s
}

// beginSubmit validates and moves Editing to Submitting, returning the draft to write.
// Validation failures leave the state unchanged.
func (c *Controller) beginSubmit(mode Mode) (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != mode {
		return Draft{}, fmt.Errorf("%w: controller is not in %s mode", catalog.ErrInvalidInput, modeName(mode))
	}
	if err := c.requireEditing(); err != nil {
		return Draft{}, err
	}
	if c.fetching {
		return Draft{}, fmt.Errorf("%w: metadata lookup pending", catalog.ErrBusy)
	}
	if err := Validate(c.draft); err != nil {
		c.lastErr = err
		return Draft{}, err
	}
	c.state = StateSubmitting
	return c.draft, nil
}

func (c *Controller) fail(op string, err error) error {
	c.mu.Lock()
	c.state = StateEditing
	c.lastErr = err
	c.mu.Unlock()
	c.deps.Logger.Error("product "+op+" failed", zap.String("product_id", c.productID), zap.Error(err))
	return err
}

func (c *Controller) publish(ctx context.Context, event catalog.ProductEvent) {
	if c.deps.Publisher == nil {
		return
	}
	if _, err := c.deps.Publisher.Publish(ctx, c.deps.Topic, event); err != nil {
		c.deps.Logger.Warn("publish product event failed",
			zap.String("event", string(event.Type)),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
	}
}

// requireEditing must be called with c.mu held.
func (c *Controller) requireEditing() error {
	switch c.state {
	case StateEditing:
		return nil
	case StateSubmitting:
		return fmt.Errorf("%w: submission in flight", catalog.ErrBusy)
	default:
		return fmt.Errorf("%w: form already submitted", catalog.ErrInvalidInput)
	}
}

func writeErr(err error) error {
	if errors.Is(err, catalog.ErrWrite) || errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", catalog.ErrWrite, err)
}

func modeName(m Mode) string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}
