package crawler

import "testing"

func TestParsePriceMan(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"5억 3,000", 53000},
		{"2억", 20000},
		{"3,000", 3000},
		{"", 0},
		{"-", 0},
		{"12억", 120000},
		{"1억2,500", 12500},
		{"  7억 500 ", 70500},
		{"500", 500},
		{"보증금 5,000", 5000},
	}
	for _, tc := range cases {
		if got := ParsePriceMan(tc.in); got != tc.want {
			t.Errorf("ParsePriceMan(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParsePriceManGarbage(t *testing.T) {
	for _, in := range []string{"미정", "가격협의", "억"} {
		if got := ParsePriceMan(in); got != 0 {
			t.Errorf("ParsePriceMan(%q) = %d, want 0", in, got)
		}
	}
}
