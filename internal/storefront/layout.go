package storefront

import "fmt"

// Layout is the grid geometry for a viewport width.
type Layout struct {
	Columns  int
	Mobile   bool
	Gap      int
	Padding  int
	FontSize int
}

// Breakpoint maps widths strictly below MaxWidth to Columns. MaxWidth 0 is the catch-all.
type Breakpoint struct {
	MaxWidth int
	Columns  int
}

// Breakpoints lists the grid breakpoints in ascending order. Pages use it to
// emit matching CSS media queries.
var Breakpoints = []Breakpoint{
	{MaxWidth: 600, Columns: 2},
	{MaxWidth: 900, Columns: 3},
	{MaxWidth: 1200, Columns: 4},
	{MaxWidth: 0, Columns: 5},
}

// MobileWidth is the width below which the compact layout applies.
const MobileWidth = 600

var (
	mobileLayout  = Layout{Mobile: true, Gap: 10, Padding: 8, FontSize: 11}
	desktopLayout = Layout{Gap: 16, Padding: 12, FontSize: 13}
)

// LayoutFor returns the layout for a viewport width.
func LayoutFor(width int) Layout {
	l := desktopLayout
	if width < MobileWidth {
		l = mobileLayout
	}
	for _, bp := range Breakpoints {
		if bp.MaxWidth == 0 || width < bp.MaxWidth {
			l.Columns = bp.Columns
			break
		}
	}
	return l
}

// MediaRule pairs a CSS media query with the layout it selects.
type MediaRule struct {
	Query  string
	Layout Layout
}

// MediaRules renders Breakpoints as min/max-width media queries in ascending order.
func MediaRules() []MediaRule {
	rules := make([]MediaRule, 0, len(Breakpoints))
	lower := 0
	for _, bp := range Breakpoints {
		var query string
		switch {
		case lower == 0:
			query = fmt.Sprintf("(max-width: %dpx)", bp.MaxWidth-1)
		case bp.MaxWidth == 0:
			query = fmt.Sprintf("(min-width: %dpx)", lower)
		default:
			query = fmt.Sprintf("(min-width: %dpx) and (max-width: %dpx)", lower, bp.MaxWidth-1)
		}
		rules = append(rules, MediaRule{Query: query, Layout: LayoutFor(lower)})
		lower = bp.MaxWidth
	}
	return rules
}
