// Package memory provides in-memory stores for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

// ProductStore keeps products in a map guarded by an RWMutex.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]entry
	seq      int64
	last     time.Time
	idGen    catalog.IDGenerator
	clock    catalog.Clock
}

type entry struct {
	product catalog.Product
	seq     int64
}

// NewProductStore constructs a ProductStore.
func NewProductStore(idGen catalog.IDGenerator, clock catalog.Clock) *ProductStore {
	return &ProductStore{
		products: make(map[string]entry),
		idGen:    idGen,
		clock:    clock,
	}
}

// Create assigns an ID and creation time and stores the record.
func (s *ProductStore) Create(_ context.Context, p catalog.NewProduct) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("%w: generate id: %w", catalog.ErrWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[id]; exists {
		return "", fmt.Errorf("%w: product %s already exists", catalog.ErrWrite, id)
	}
	created := s.clock.Now()
	if created.Before(s.last) {
		created = s.last
	}
	s.last = created
	s.seq++
	s.products[id] = entry{
		seq: s.seq,
		product: catalog.Product{
			ID:            id,
			Title:         p.Title,
			Description:   p.Description,
			Price:         copyPrice(p.Price),
			ImageURL:      p.ImageURL,
			Category:      p.Category,
			AffiliateLink: p.AffiliateLink,
			CreatedAt:     created,
		},
	}
	return id, nil
}

// Get fetches a product by ID.
func (s *ProductStore) Get(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return clone(e.product), nil
}

// List returns every product, newest first. Equal timestamps fall back to insertion order.
func (s *ProductStore) List(_ context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.products))
	for _, e := range s.products {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.product.CreatedAt.Equal(b.product.CreatedAt) {
			return a.product.CreatedAt.After(b.product.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]catalog.Product, 0, len(entries))
	for _, e := range entries {
		out = append(out, clone(e.product))
	}
	return out, nil
}

// Update merges the change set into an existing product.
func (s *ProductStore) Update(_ context.Context, id string, changes catalog.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	stamp := changes.UpdatedAt
	if stamp.IsZero() {
		stamp = s.clock.Now()
	}
	e.product = changes.Apply(e.product, stamp)
	s.products[id] = e
	return nil
}

func clone(p catalog.Product) catalog.Product {
	p.Price = copyPrice(p.Price)
	if p.UpdatedAt != nil {
		ts := *p.UpdatedAt
		p.UpdatedAt = &ts
	}
	return p
}

func copyPrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
