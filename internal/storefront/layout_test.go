package storefront

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutFor(t *testing.T) {
	cases := []struct {
		width   int
		columns int
		mobile  bool
	}{
		{0, 2, true},
		{375, 2, true},
		{599, 2, true},
		{600, 3, false},
		{800, 3, false},
		{899, 3, false},
		{900, 4, false},
		{1199, 4, false},
		{1200, 5, false},
		{1300, 5, false},
		{2560, 5, false},
	}
	for _, tc := range cases {
		l := LayoutFor(tc.width)
		require.Equal(t, tc.columns, l.Columns, "width %d", tc.width)
		require.Equal(t, tc.mobile, l.Mobile, "width %d", tc.width)
	}
}

func TestLayoutSpacing(t *testing.T) {
	require.Equal(t, Layout{Columns: 2, Mobile: true, Gap: 10, Padding: 8, FontSize: 11}, LayoutFor(400))
	require.Equal(t, Layout{Columns: 5, Gap: 16, Padding: 12, FontSize: 13}, LayoutFor(1300))
}

func TestMediaRules(t *testing.T) {
	rules := MediaRules()
	require.Len(t, rules, len(Breakpoints))
	require.Equal(t, "(max-width: 599px)", rules[0].Query)
	require.True(t, rules[0].Layout.Mobile)
	require.Equal(t, "(min-width: 600px) and (max-width: 899px)", rules[1].Query)
	require.Equal(t, 3, rules[1].Layout.Columns)
	require.Equal(t, "(min-width: 900px) and (max-width: 1199px)", rules[2].Query)
	require.Equal(t, "(min-width: 1200px)", rules[3].Query)
	require.Equal(t, 5, rules[3].Layout.Columns)
}
