// Package catalog defines the product types, errors, and collaborator interfaces shared across subsystems.
package catalog

import (
	"strings"
	"time"
)

// Product is one persisted catalog record.
type Product struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         *float64   `json:"price"`
	ImageURL      string     `json:"image_url"`
	Category      string     `json:"category"`
	AffiliateLink string     `json:"affiliate_link"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// NewProduct carries every field captured by the add flow.
type NewProduct struct {
	Title         string
	Description   string
	Price         *float64
	ImageURL      string
	Category      string
	AffiliateLink string
}

// Changes is the changed-field set applied by an update. Nil optional fields are left untouched.
type Changes struct {
	Title         *string
	Description   *string
	Category      *string
	Price         *float64
	ImageURL      string
	AffiliateLink string
	UpdatedAt     time.Time
}

// Field names as they appear in changed-field sets and JSON payloads.
const (
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldImageURL      = "image_url"
	FieldCategory      = "category"
	FieldAffiliateLink = "affiliate_link"
	FieldUpdatedAt     = "updatedAt"
)

// OptionalCount reports how many optional fields the change set writes.
func (c Changes) OptionalCount() int {
	n := 0
	for _, present := range []bool{c.Title != nil, c.Description != nil, c.Category != nil, c.Price != nil} {
		if present {
			n++
		}
	}
	return n
}

// Fields lists the field names written by the change set in a stable order.
func (c Changes) Fields() []string {
	fields := make([]string, 0, 7)
	if c.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if c.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if c.Category != nil {
		fields = append(fields, FieldCategory)
	}
	if c.Price != nil {
		fields = append(fields, FieldPrice)
	}
	return append(fields, FieldImageURL, FieldAffiliateLink, FieldUpdatedAt)
}

// Apply merges the change set into p and returns the result.
func (c Changes) Apply(p Product, stamp time.Time) Product {
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Category != nil {
		p.Category = *c.Category
	}
	if c.Price != nil {
		price := *c.Price
		p.Price = &price
	}
	p.ImageURL = c.ImageURL
	p.AffiliateLink = c.AffiliateLink
	p.UpdatedAt = &stamp
	return p
}

// Metadata is a link-preview suggestion. Empty strings mean "no suggestion".
type Metadata struct {
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Empty reports whether neither title nor image was found.
func (m Metadata) Empty() bool {
	return strings.TrimSpace(m.Title) == "" && strings.TrimSpace(m.ImageURL) == ""
}

// EventType names a product change notification.
type EventType string

// Product change notifications.
const (
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
)

// ProductEvent is published after a successful write.
type ProductEvent struct {
	Type      EventType `json:"type"`
	ProductID string    `json:"product_id"`
	Fields    []string  `json:"fields,omitempty"`
	At        time.Time `json:"at"`
}

// IsHTTPURL reports whether raw starts with an http:// or https:// scheme.
func IsHTTPURL(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Attributes returns message attributes for brokers that support them.
func (e ProductEvent) Attributes() map[string]string {
	return map[string]string{
		"event_type": string(e.Type),
		"product_id": e.ProductID,
	}
}
