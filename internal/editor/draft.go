package editor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

// Draft is the in-progress, possibly invalid copy of a product being created or edited.
// Price is kept as raw text.
type Draft struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	ImageURL      string `json:"image_url"`
	Category      string `json:"category"`
	AffiliateLink string `json:"affiliate_link"`
}

// DraftFrom renders a stored product as an editable draft.
func DraftFrom(p catalog.Product) Draft {
	d := Draft{
		Title:         p.Title,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		Category:      p.Category,
		AffiliateLink: p.AffiliateLink,
	}
	if p.Price != nil {
		d.Price = strconv.FormatFloat(*p.Price, 'f', -1, 64)
	}
	return d
}

// Set assigns one field by its wire name.
func (d *Draft) Set(name, value string) error {
	switch name {
	case catalog.FieldTitle:
		d.Title = value
	case catalog.FieldDescription:
		d.Description = value
	case catalog.FieldPrice:
		d.Price = value
	case catalog.FieldImageURL:
		d.ImageURL = value
	case catalog.FieldCategory:
		d.Category = value
	case catalog.FieldAffiliateLink:
		d.AffiliateLink = value
	default:
		return fmt.Errorf("%w: unknown field %q", catalog.ErrInvalidInput, name)
	}
	return nil
}

// Validate checks the two required URL fields. All other fields are unconstrained.
func Validate(d Draft) error {
	if strings.TrimSpace(d.ImageURL) == "" {
		return &catalog.ValidationError{Field: catalog.FieldImageURL, Message: "image URL is required"}
	}
	if !catalog.IsHTTPURL(d.ImageURL) {
		return &catalog.ValidationError{Field: catalog.FieldImageURL, Message: "image URL must start with http:// or https://"}
	}
	if strings.TrimSpace(d.AffiliateLink) == "" {
		return &catalog.ValidationError{Field: catalog.FieldAffiliateLink, Message: "affiliate link is required"}
	}
	if !catalog.IsHTTPURL(d.AffiliateLink) {
		return &catalog.ValidationError{Field: catalog.FieldAffiliateLink, Message: "affiliate link must start with http:// or https://"}
	}
	return nil
}

// ParsePrice converts raw price text. ok is false for blank or non-numeric text.
func ParsePrice(raw string) (price float64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NewProduct builds the create payload: blank text stays "", unparseable price becomes nil.
func NewProduct(d Draft) catalog.NewProduct {
	np := catalog.NewProduct{
		Title:         strings.TrimSpace(d.Title),
		Description:   strings.TrimSpace(d.Description),
		ImageURL:      strings.TrimSpace(d.ImageURL),
		Category:      strings.TrimSpace(d.Category),
		AffiliateLink: strings.TrimSpace(d.AffiliateLink),
	}
	if v, ok := ParsePrice(d.Price); ok {
		np.Price = &v
	}
	return np
}

// BuildChanges computes the changed-field set for an update. A text field is
// written only when its trimmed value is non-empty and differs from the
// original; price only when it parses to a different finite number. Blank
// optional fields leave the stored value untouched. The two URL fields and
// the update stamp are always written.
func BuildChanges(d Draft, original catalog.Product, now time.Time) catalog.Changes {
	changes := catalog.Changes{
		Title:         changedText(d.Title, original.Title),
		Description:   changedText(d.Description, original.Description),
		Category:      changedText(d.Category, original.Category),
		ImageURL:      strings.TrimSpace(d.ImageURL),
		AffiliateLink: strings.TrimSpace(d.AffiliateLink),
		UpdatedAt:     now,
	}
	if v, ok := ParsePrice(d.Price); ok && (original.Price == nil || *original.Price != v) {
		changes.Price = &v
	}
	return changes
}

func changedText(value, original string) *string {
	value = strings.TrimSpace(value)
	if value == "" || value == strings.TrimSpace(original) {
		return nil
	}
	return &value
}
