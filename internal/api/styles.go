package api

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/JakeFAU/affiliate-catalog/internal/storefront"
	"github.com/JakeFAU/affiliate-catalog/internal/theme"
)

// baseCSS is generated from trusted values only: the palette and the breakpoint table.
func baseCSS(p theme.Palette) template.CSS {
	return template.CSS(fmt.Sprintf("body{background-color:%s;color:%s;}", p.Background, p.Foreground))
}

// gridCSS renders the masonry breakpoints as media queries so the browser
// reflows on resize without a round trip.
func gridCSS() template.CSS {
	var b strings.Builder
	for _, rule := range storefront.MediaRules() {
		l := rule.Layout
		fmt.Fprintf(&b, "@media %s{", rule.Query)
		fmt.Fprintf(&b, ".grid{column-count:%d;column-gap:%dpx;}", l.Columns, l.Gap)
		fmt.Fprintf(&b, ".card{margin-bottom:%dpx;}", l.Gap)
		fmt.Fprintf(&b, ".card-info{padding:%dpx;}", l.Padding)
		fmt.Fprintf(&b, ".card-title,.card-price{font-size:%dpx;}", l.FontSize)
		if !l.Mobile {
			b.WriteString(".card:hover,.card.hovered{transform:scale(1.05);z-index:10;box-shadow:0 18px 40px rgba(0,0,0,0.4);}")
		}
		b.WriteString("}")
	}
	return template.CSS(b.String())
}
