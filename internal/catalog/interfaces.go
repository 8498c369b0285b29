package catalog

import (
	"context"
	"time"
)

// ProductStore persists product records.
type ProductStore interface {
	Create(ctx context.Context, product NewProduct) (string, error)
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, id string, changes Changes) error
}

// ProductLister is the read side used by the catalog view.
type ProductLister interface {
	List(ctx context.Context) ([]Product, error)
}

// MetadataFetcher resolves a link preview for a URL.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (Metadata, error)
}

// Publisher pushes change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces product IDs.
type IDGenerator interface {
	NewID() (string, error)
}
