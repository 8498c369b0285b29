package api

import (
	"net/http"
	"net/url"

	"github.com/JakeFAU/affiliate-catalog/internal/theme"
)

// linker builds in-app URLs that carry the per-request theme and, for admin
// pages, the API key forward to the next page load.
type linker struct {
	theme  theme.Theme
	apiKey string
}

func newLinker(r *http.Request) linker {
	return linker{
		theme:  theme.FromContext(r.Context()),
		apiKey: r.URL.Query().Get("api_key"),
	}
}

// to returns path with the given key/value pairs. Empty values are dropped.
func (l linker) to(path string, pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	if !l.theme.Dark {
		q.Set(theme.QueryParam, l.theme.Name())
	}
	if l.apiKey != "" {
		q.Set("api_key", l.apiKey)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// toggle returns the current URL with the theme flipped.
func (l linker) toggle(r *http.Request) string {
	q := r.URL.Query()
	next := l.theme.Toggle()
	if next.Dark {
		q.Del(theme.QueryParam)
	} else {
		q.Set(theme.QueryParam, next.Name())
	}
	if len(q) == 0 {
		return r.URL.Path
	}
	return r.URL.Path + "?" + q.Encode()
}
