// Package api hosts the HTTP server, middleware, and handlers for the catalog.
// Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /api/scrape for link-preview lookups used by the admin forms.
//   - /v1/products for the JSON product API.
//   - GET / for the public storefront and /admin/... for the admin screens.
//
// When auth is enabled, admin pages and every write route require the API key.
package api
