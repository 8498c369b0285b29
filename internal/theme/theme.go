// Package theme holds the per-request light/dark display preference.
package theme

import (
	"context"
	"net/http"
	"strings"
)

// Theme is the display preference for one page session. The zero value is light;
// use Default for the initial state.
type Theme struct {
	Dark bool
}

// Palette is the background and foreground color pair for a theme.
type Palette struct {
	Background string
	Foreground string
}

// QueryParam is the URL parameter carrying the theme between page loads.
const QueryParam = "theme"

// Default returns the initial theme: dark.
func Default() Theme {
	return Theme{Dark: true}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	return Theme{Dark: !t.Dark}
}

// Palette returns the page colors for t.
func (t Theme) Palette() Palette {
	if t.Dark {
		return Palette{Background: "#000000", Foreground: "#ffffff"}
	}
	return Palette{Background: "#ffffff", Foreground: "#000000"}
}

// ToggleLabel is the text of the button that switches away from t.
func (t Theme) ToggleLabel() string {
	if t.Dark {
		return "☀ Light Mode"
	}
	return "🌙 Dark Mode"
}

// Name returns "dark" or "light".
func (t Theme) Name() string {
	if t.Dark {
		return "dark"
	}
	return "light"
}

// Parse reads a theme name. Anything other than "light" yields the default.
func Parse(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), "light") {
		return Theme{Dark: false}
	}
	return Default()
}

type ctxKey struct{}

// WithTheme returns a context carrying t.
func WithTheme(ctx context.Context, t Theme) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the theme in ctx, or Default when none is set.
func FromContext(ctx context.Context) Theme {
	if t, ok := ctx.Value(ctxKey{}).(Theme); ok {
		return t
	}
	return Default()
}

// Middleware scopes the theme named by the ?theme= parameter to the request.
// Nothing is persisted between requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := Parse(r.URL.Query().Get(QueryParam))
		next.ServeHTTP(w, r.WithContext(WithTheme(r.Context(), t)))
	})
}
