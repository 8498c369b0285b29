// Package storefront implements the public catalog view: search, responsive
// masonry layout, hover emphasis and the detail overlay.
//
// A View is an explicit state machine. Every method mutates state and the page
// is redrawn from Snapshot, so the same state always renders the same page.
package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

// PurchaseLink is an outbound affiliate link. It always opens in a new browsing context.
type PurchaseLink struct {
	Href   string
	Target string
	Rel    string
}

// Card is one grid tile.
type Card struct {
	Product catalog.Product
	Hovered bool
	Link    PurchaseLink
}

// Render is the deterministic render state of a View.
type Render struct {
	Loaded bool
	Query  string
	Width  int
	Layout Layout
	Cards  []Card
	Active *Card
}

// View is the catalog page state for one page session.
type View struct {
	lister catalog.ProductLister

	mu       sync.Mutex
	loaded   bool
	products []catalog.Product
	query    string
	width    int
	layout   Layout
	hovered  string
	active   string
}

// New returns an unloaded view at the given viewport width.
func New(lister catalog.ProductLister, width int) *View {
	return &View{lister: lister, width: width, layout: LayoutFor(width)}
}

// Activate loads all products once. Nothing is shown until it succeeds.
func (v *View) Activate(ctx context.Context) error {
	products, err := v.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.products = products
	v.loaded = true
	return nil
}

// SetQuery replaces the live search text. Filtering is local; nothing is refetched.
func (v *View) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
}

// Resize recomputes the layout for a new viewport width.
func (v *View) Resize(width int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = width
	v.layout = LayoutFor(width)
	if v.layout.Mobile {
		v.hovered = ""
	}
}

// HoverEnter marks id as hovered. Ignored in the mobile layout.
func (v *View) HoverEnter(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.layout.Mobile {
		return
	}
	v.hovered = id
}

// HoverLeave clears the hover mark if it is on id.
func (v *View) HoverLeave(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.layout.Mobile || v.hovered != id {
		return
	}
	v.hovered = ""
}

// Select opens the detail overlay for id.
func (v *View) Select(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.find(id); !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	v.active = id
	return nil
}

// ClickBackdrop closes the overlay.
func (v *View) ClickBackdrop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = ""
}

// ClickContent is a click inside the overlay body. It does not close the overlay.
func (v *View) ClickContent() {}

// ClickPurchaseLink follows a card's affiliate link without selecting the card.
func (v *View) ClickPurchaseLink(id string) (PurchaseLink, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.find(id)
	if !ok {
		return PurchaseLink{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return linkFor(p), nil
}

// Snapshot returns the current render state.
func (v *View) Snapshot() Render {
	v.mu.Lock()
	defer v.mu.Unlock()
	r := Render{
		Loaded: v.loaded,
		Query:  v.query,
		Width:  v.width,
		Layout: v.layout,
	}
	if !v.loaded {
		return r
	}
	visible := Filter(v.products, v.query)
	r.Cards = make([]Card, 0, len(visible))
	for _, p := range visible {
		r.Cards = append(r.Cards, Card{Product: p, Hovered: p.ID == v.hovered, Link: linkFor(p)})
	}
	if p, ok := v.find(v.active); ok {
		r.Active = &Card{Product: p, Link: linkFor(p)}
	}
	return r
}

func (v *View) find(id string) (catalog.Product, bool) {
	if id == "" {
		return catalog.Product{}, false
	}
	for _, p := range v.products {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Filter keeps products whose title contains q, ignoring case. Order is preserved.
func Filter(products []catalog.Product, q string) []catalog.Product {
	needle := strings.ToLower(q)
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}

func linkFor(p catalog.Product) PurchaseLink {
	return PurchaseLink{Href: p.AffiliateLink, Target: "_blank", Rel: "noopener noreferrer"}
}
