package catalog

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsHTTPURL(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com/a.jpg": true,
		"http://example.com":        true,
		"HTTPS://EXAMPLE.COM":       true,
		"  https://padded.example":  true,
		"ftp://example.com":         false,
		"example.com":               false,
		"":                          false,
		"httpfoo":                   false,
	}
	for raw, want := range cases {
		require.Equal(t, want, IsHTTPURL(raw), raw)
	}
}

func TestChangesFieldsAlwaysIncludesBookkeeping(t *testing.T) {
	t.Parallel()

	title := "New"
	c := Changes{Title: &title, ImageURL: "https://x/a.jpg", AffiliateLink: "https://y/b"}
	require.Equal(t, []string{FieldTitle, FieldImageURL, FieldAffiliateLink, FieldUpdatedAt}, c.Fields())
	require.Equal(t, 1, c.OptionalCount())

	empty := Changes{ImageURL: "https://x/a.jpg", AffiliateLink: "https://y/b"}
	require.Equal(t, 0, empty.OptionalCount())
	require.Len(t, empty.Fields(), 3)
}

func TestChangesApplyLeavesAbsentFields(t *testing.T) {
	t.Parallel()

	price := 10.0
	orig := Product{
		ID:            "p1",
		Title:         "Old",
		Description:   "keep me",
		Price:         &price,
		ImageURL:      "https://x/old.jpg",
		AffiliateLink: "https://y/old",
	}
	title := "New"
	stamp := time.Unix(200, 0).UTC()
	got := Changes{Title: &title, ImageURL: "https://x/new.jpg", AffiliateLink: "https://y/new"}.Apply(orig, stamp)

	require.Equal(t, "New", got.Title)
	require.Equal(t, "keep me", got.Description)
	require.InDelta(t, 10.0, *got.Price, 0)
	require.Equal(t, "https://x/new.jpg", got.ImageURL)
	require.NotNil(t, got.UpdatedAt)
	require.True(t, got.UpdatedAt.Equal(stamp))
	require.Nil(t, orig.UpdatedAt)
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("submit: %w", &ValidationError{Field: FieldImageURL, Message: "valid image URL is required"})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, FieldImageURL, verr.Field)
}

func TestMetadataEmpty(t *testing.T) {
	t.Parallel()

	require.True(t, Metadata{}.Empty())
	require.True(t, Metadata{Title: "  "}.Empty())
	require.False(t, Metadata{ImageURL: "https://x/a.jpg"}.Empty())
}
