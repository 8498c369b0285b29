// Package metadata resolves link previews (title and image) for affiliate links.
//
// The Microlink provider calls the hosted link-preview API. Subpackages add
// providers that read OpenGraph tags directly (colly) or from a rendered page
// (headless Chrome). Chain combines providers in priority order.
package metadata
