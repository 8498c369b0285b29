package api

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
	"github.com/JakeFAU/affiliate-catalog/internal/editor"
	"github.com/JakeFAU/affiliate-catalog/internal/storefront"
	"github.com/JakeFAU/affiliate-catalog/internal/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"price": formatPrice,
}).ParseFS(templateFS, "templates/*.html"))

const (
	actionFetch = "fetch"
	actionSave  = "save"

	maxFormBytes = 64 << 10
)

// chrome is the data shared by every page: navbar, theme and title.
type chrome struct {
	Title        string
	Brand        string
	InstagramURL string
	TikTokURL    string
	Theme        theme.Theme
	Palette      theme.Palette
	ToggleURL    string
	HomeURL      string
	AdminURL     string
	Notice       string
	NoticeError  bool
	PageCSS      template.CSS
}

type cardView struct {
	storefront.Card
	OpenURL string
}

type homePage struct {
	chrome
	Render   storefront.Render
	Cards    []cardView
	Active   *cardView
	CloseURL string
	Currency string
	GridCSS  template.CSS
	Width    int
	// WidthHint is the w parameter echoed back so searches keep the layout.
	WidthHint string
}

type dashboardRow struct {
	Product catalog.Product
	EditURL string
}

type dashboardPage struct {
	chrome
	Rows     []dashboardRow
	NewURL   string
	Currency string
}

type formPage struct {
	chrome
	Heading   string
	ActionURL string
	Draft     editor.Draft
	Editing   bool
	ProductID string
}

func (s *Server) chrome(r *http.Request, title string) chrome {
	l := newLinker(r)
	return chrome{
		Title:        title,
		Brand:        s.cfg.Storefront.Brand,
		InstagramURL: s.cfg.Storefront.InstagramURL,
		TikTokURL:    s.cfg.Storefront.TikTokURL,
		Theme:        l.theme,
		Palette:      l.theme.Palette(),
		ToggleURL:    l.toggle(r),
		HomeURL:      l.to("/"),
		AdminURL:     l.to("/admin"),
		PageCSS:      baseCSS(l.theme.Palette()),
	}
}

// homePage handles GET /?q=&w=&active=. The view is rebuilt from request state on every load.
func (s *Server) homePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := s.cfg.Storefront.DefaultWidth
	if v, err := strconv.Atoi(q.Get("w")); err == nil && v > 0 {
		width = v
	}
	query := q.Get("q")

	view := storefront.New(s.deps.Store, width)
	if err := view.Activate(r.Context()); err != nil {
		s.logger.Error("load storefront failed", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "The catalog is unavailable right now.")
		return
	}
	view.SetQuery(query)
	if active := q.Get("active"); active != "" {
		if err := view.Select(active); err != nil {
			s.logger.Debug("overlay product not found", zap.String("product_id", active))
		}
	}

	l := newLinker(r)
	widthParam := q.Get("w")
	render := view.Snapshot()
	page := homePage{
		chrome:   s.chrome(r, s.cfg.Storefront.Brand),
		Render:   render,
		Cards:    make([]cardView, 0, len(render.Cards)),
		CloseURL: l.to("/", "q", query, "w", widthParam),
		Currency: s.cfg.Storefront.Currency,
		GridCSS:  gridCSS(),
		Width:    width,
	}
	if widthParam != "" {
		page.WidthHint = strconv.Itoa(width)
	}
	for _, c := range render.Cards {
		page.Cards = append(page.Cards, cardView{
			Card:    c,
			OpenURL: l.to("/", "q", query, "w", widthParam, "active", c.Product.ID),
		})
	}
	if render.Active != nil {
		page.Active = &cardView{Card: *render.Active}
	}
	s.render(w, http.StatusOK, "home", page)
}

func (s *Server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Store.List(r.Context())
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		s.renderError(w, r, http.StatusInternalServerError, "Could not load products.")
		return
	}
	l := newLinker(r)
	page := dashboardPage{
		chrome:   s.chrome(r, "Admin Dashboard"),
		Rows:     make([]dashboardRow, 0, len(products)),
		NewURL:   l.to("/admin/products/new"),
		Currency: s.cfg.Storefront.Currency,
	}
	switch r.URL.Query().Get("notice") {
	case "created":
		page.Notice = "✅ Product added successfully!"
	case "updated":
		page.Notice = "✅ Product updated"
	}
	for _, p := range products {
		page.Rows = append(page.Rows, dashboardRow{Product: p, EditURL: l.to("/admin/products/" + p.ID + "/edit")})
	}
	s.render(w, http.StatusOK, "dashboard", page)
}

func (s *Server) newProductPage(w http.ResponseWriter, r *http.Request) {
	c := editor.NewCreate(s.editorDeps())
	s.renderForm(w, r, http.StatusOK, c, "", false)
}

func (s *Server) submitNewProduct(w http.ResponseWriter, r *http.Request) {
	draft, action, err := parseDraftForm(w, r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	c := editor.NewCreate(s.editorDeps())
	if err := c.SetDraft(draft); err != nil {
		s.renderForm(w, r, statusFor(err), c, noticeFor(err), true)
		return
	}

	if action == actionFetch {
		s.fetchIntoForm(w, r, c)
		return
	}
	if _, err := c.SubmitCreate(r.Context()); err != nil {
		s.renderForm(w, r, statusFor(err), c, noticeFor(err), true)
		return
	}
	http.Redirect(w, r, newLinker(r).to("/admin", "notice", "created"), http.StatusSeeOther)
}

func (s *Server) editProductPage(w http.ResponseWriter, r *http.Request) {
	c, err := editor.NewEdit(r.Context(), s.editorDeps(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderLoadError(w, r, err)
		return
	}
	s.renderForm(w, r, http.StatusOK, c, "", false)
}

func (s *Server) submitEditProduct(w http.ResponseWriter, r *http.Request) {
	draft, action, err := parseDraftForm(w, r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	c, err := editor.NewEdit(r.Context(), s.editorDeps(), chi.URLParam(r, "id"))
	if err != nil {
		s.renderLoadError(w, r, err)
		return
	}
	if err := c.SetDraft(draft); err != nil {
		s.renderForm(w, r, statusFor(err), c, noticeFor(err), true)
		return
	}

	if action == actionFetch {
		s.fetchIntoForm(w, r, c)
		return
	}
	if _, err := c.SubmitUpdate(r.Context()); err != nil {
		s.renderForm(w, r, statusFor(err), c, noticeFor(err), true)
		return
	}
	http.Redirect(w, r, newLinker(r).to("/admin", "notice", "updated"), http.StatusSeeOther)
}

func (s *Server) fetchIntoForm(w http.ResponseWriter, r *http.Request, c *editor.Controller) {
	ctx, cancel := context.WithTimeout(r.Context(), s.metadataTimeout())
	defer cancel()
	if _, err := c.RequestMetadata(ctx); err != nil {
		s.renderForm(w, r, http.StatusOK, c, noticeFor(err), true)
		return
	}
	s.renderForm(w, r, http.StatusOK, c, "Product info fetched. Review before saving.", false)
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, c *editor.Controller, notice string, isErr bool) {
	snap := c.Snapshot()
	l := newLinker(r)
	page := formPage{
		chrome:  s.chrome(r, "Add Product"),
		Heading: "Add Product",
		Draft:   snap.Draft,
	}
	page.ActionURL = l.to("/admin/products/new")
	if snap.Mode == editor.ModeEdit {
		page.Title = "Edit Product"
		page.Heading = "Edit Product"
		page.Editing = true
		page.ProductID = snap.ProductID
		page.ActionURL = l.to("/admin/products/" + snap.ProductID + "/edit")
	}
	page.Notice = notice
	page.NoticeError = isErr
	s.render(w, status, "form", page)
}

func (s *Server) renderLoadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Product not found")
		return
	}
	s.logger.Error("load product failed", zap.Error(err))
	s.renderError(w, r, http.StatusInternalServerError, "Could not load the product.")
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	page := s.chrome(r, "Error")
	page.Notice = msg
	page.NoticeError = true
	s.render(w, status, "error", page)
}

// render executes into a buffer first so template failures never leave a half-written page.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render page failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("write page failed", zap.Error(err))
	}
}

func parseDraftForm(w http.ResponseWriter, r *http.Request) (editor.Draft, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return editor.Draft{}, "", err
	}
	draft := editor.Draft{
		Title:         r.PostForm.Get(catalog.FieldTitle),
		Description:   r.PostForm.Get(catalog.FieldDescription),
		Price:         r.PostForm.Get(catalog.FieldPrice),
		ImageURL:      r.PostForm.Get(catalog.FieldImageURL),
		Category:      r.PostForm.Get(catalog.FieldCategory),
		AffiliateLink: r.PostForm.Get(catalog.FieldAffiliateLink),
	}
	action := r.PostForm.Get("action")
	if action != actionFetch {
		action = actionSave
	}
	return draft, action, nil
}

// noticeFor turns a workflow error into the blocking notice shown to the admin.
func noticeFor(err error) string {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, catalog.ErrNoChanges):
		return "No changes detected"
	case errors.Is(err, catalog.ErrInvalidInput):
		return "Enter a valid affiliate link first"
	case errors.Is(err, catalog.ErrMetadataUnavailable):
		return msgMetadataNotAvailable
	case errors.Is(err, catalog.ErrFetchFailed):
		return msgFetchFailed
	case errors.Is(err, catalog.ErrNotFound):
		return "Product not found"
	case errors.Is(err, catalog.ErrBusy):
		return "Please wait for the current request to finish"
	default:
		return "❌ Save failed. Please try again."
	}
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strings.TrimSuffix(strconv.FormatFloat(*p, 'f', 2, 64), ".00")
}
