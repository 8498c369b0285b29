package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/theme"
)

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHomePageRendersCards(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	price := 1250.0
	env.seed(t,
		catalog.NewProduct{Title: "Ceramic Mug", Price: &price, ImageURL: "https://img.example/1.jpg", AffiliateLink: "https://s.daraz.com.np/1"},
		catalog.NewProduct{Title: "Steel Bottle", ImageURL: "https://img.example/2.jpg", AffiliateLink: "https://s.daraz.com.np/2"},
	)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.Contains(t, body, "Daraz Finds NP")
	require.Contains(t, body, "Ceramic Mug")
	require.Contains(t, body, "Steel Bottle")
	require.Contains(t, body, "Rs. 1250")
	require.Contains(t, body, `href="https://s.daraz.com.np/1" target="_blank" rel="noopener noreferrer"`)
	require.Contains(t, body, `data-columns="5"`)
	require.Contains(t, body, "@media (max-width: 599px)")
	require.NotContains(t, body, `class="overlay"`)
	require.NotContains(t, body, `name="w"`)
	require.Less(t, strings.Index(body, "Steel Bottle"), strings.Index(body, "Ceramic Mug"), "newest first")
}

func TestHomePageQueryAndWidth(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	env.seed(t,
		catalog.NewProduct{Title: "Ceramic Mug", ImageURL: "https://img.example/1.jpg", AffiliateLink: "https://s.daraz.com.np/1"},
		catalog.NewProduct{Title: "Steel Bottle", ImageURL: "https://img.example/2.jpg", AffiliateLink: "https://s.daraz.com.np/2"},
	)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?q=MUG&w=800", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Ceramic Mug")
	require.NotContains(t, body, "Steel Bottle")
	require.Contains(t, body, `data-columns="3"`)
	require.Contains(t, body, `value="MUG"`)
	require.Contains(t, body, `<input type="hidden" name="w" value="800">`)
}

func TestHomePageOverlay(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	ids := env.seed(t, catalog.NewProduct{Title: "Ceramic Mug", ImageURL: "https://img.example/1.jpg", AffiliateLink: "https://s.daraz.com.np/1"})

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?active="+ids[0], nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `class="overlay"`)
	require.Contains(t, body, "Buy Now")
	require.Contains(t, body, `class="backdrop" href="/"`)

	// Unknown ids render the grid without an overlay.
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?active=missing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `class="overlay"`)
}

func TestHomePageTheme(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	h := env.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	dark := rec.Body.String()
	require.Contains(t, dark, `data-theme="dark"`)
	require.Contains(t, dark, "#000000")
	require.Contains(t, dark, `href="/?theme=light"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?theme=light", nil))
	light := rec.Body.String()
	require.Contains(t, light, `data-theme="light"`)
	require.Contains(t, light, `href="/"`)
}

func TestAdminDashboard(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	ids := env.seed(t, catalog.NewProduct{Title: "Ceramic Mug", ImageURL: "https://img.example/1.jpg", AffiliateLink: "https://s.daraz.com.np/1"})

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin?notice=created", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Product added successfully")
	require.Contains(t, body, "/admin/products/"+ids[0]+"/edit")
	require.Contains(t, body, "+ Add Product")
}

func TestAdminCreateFlow(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	h := env.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/products/new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Add Product")

	form := url.Values{
		"title":          {"Ceramic Mug"},
		"price":          {"850"},
		"image_url":      {"https://img.example/mug.jpg"},
		"affiliate_link": {"https://s.daraz.com.np/mug"},
		"action":         {"save"},
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, formRequest("/admin/products/new", form))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin?notice=created", rec.Header().Get("Location"))

	products, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "Ceramic Mug", products[0].Title)
}

func TestAdminCreateValidationKeepsDraft(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	form := url.Values{
		"title":          {"Ceramic Mug"},
		"affiliate_link": {"https://s.daraz.com.np/mug"},
		"action":         {"save"},
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, formRequest("/admin/products/new", form))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "image URL is required")
	require.Contains(t, body, `value="Ceramic Mug"`)

	products, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestAdminFetchFillsForm(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	env.fetcher.set(catalog.Metadata{Title: "Fetched Mug", ImageURL: "https://img.example/fetched.jpg"}, nil)

	form := url.Values{
		"title":          {"Typed title"},
		"affiliate_link": {"https://s.daraz.com.np/mug"},
		"action":         {"fetch"},
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, formRequest("/admin/products/new", form))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `value="Fetched Mug"`)
	require.Contains(t, body, `value="https://img.example/fetched.jpg"`)
	require.Equal(t, 1, env.fetcher.callCount())

	products, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, products, "fetching never saves")
}

func TestAdminFetchFailureKeepsDraft(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	env.fetcher.set(catalog.Metadata{}, catalog.ErrMetadataUnavailable)

	form := url.Values{
		"title":          {"Typed title"},
		"affiliate_link": {"https://s.daraz.com.np/mug"},
		"action":         {"fetch"},
	}
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, formRequest("/admin/products/new", form))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Metadata not available")
	require.Contains(t, body, `value="Typed title"`)
}

func TestAdminEditFlow(t *testing.T) {
	t.Parallel()

	env := newTestServer(t)
	ids := env.seed(t, catalog.NewProduct{Title: "Ceramic Mug", ImageURL: "https://img.example/1.jpg", AffiliateLink: "https://s.daraz.com.np/1"})
	h := env.server.Handler()
	editPath := "/admin/products/" + ids[0] + "/edit"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, editPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `value="Ceramic Mug"`)

	unchanged := url.Values{
		"title":          {"Ceramic Mug"},
		"image_url":      {"https://img.example/1.jpg"},
		"affiliate_link": {"https://s.daraz.com.np/1"},
		"action":         {"save"},
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, formRequest(editPath, unchanged))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "No changes detected")

	changed := url.Values{
		"title":          {"Ceramic Mug XL"},
		"category":       {"Kitchen"},
		"image_url":      {"https://img.example/1.jpg"},
		"affiliate_link": {"https://s.daraz.com.np/1"},
		"action":         {"save"},
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, formRequest(editPath, changed))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin?notice=updated", rec.Header().Get("Location"))

	stored, err := env.store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	require.Equal(t, "Ceramic Mug XL", stored.Title)
	require.Equal(t, "Kitchen", stored.Category)
}

func TestAdminEditMissingProduct(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer(t).server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/products/missing/edit", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Product not found")
}

func TestLinkerCarriesThemeAndKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/admin?theme=light&api_key=k", nil)
	req = req.WithContext(theme.WithTheme(req.Context(), theme.Parse("light")))
	l := newLinker(req)

	require.Equal(t, "/admin?api_key=k&theme=light", l.to("/admin"))
	require.Equal(t, "/?api_key=k&q=mug&theme=light", l.to("/", "q", "mug", "w", ""))
	require.Equal(t, "/admin?api_key=k", l.toggle(req))
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	v := 1250.0
	frac := 99.5
	require.Equal(t, "", formatPrice(nil))
	require.Equal(t, "1250", formatPrice(&v))
	require.Equal(t, "99.50", formatPrice(&frac))
}
