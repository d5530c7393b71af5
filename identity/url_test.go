package identity

import "testing"

func TestNormalizeListingURL(t *testing.T) {
	in := "https://www.avito.ru/novosibirsk/telefony/iphone_13_128gb_123456?context=abc&slocation=654060#photo-3"
	want := "https://www.avito.ru/novosibirsk/telefony/iphone_13_128gb_123456"

	got := NormalizeListingURL(in)
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNormalizeListingURL_Idempotent(t *testing.T) {
	in := "https://www.avito.ru/moskva/noutbuki/macbook_air_987654?s=104"
	once := NormalizeListingURL(in)
	twice := NormalizeListingURL(once)
	if once != twice {
		t.Fatalf("normalization not idempotent: %s != %s", once, twice)
	}
}

func TestNormalizeListingURL_NoQuery(t *testing.T) {
	in := "https://www.avito.ru/novosibirsk/telefony/iphone_123"
	if got := NormalizeListingURL(in); got != in {
		t.Fatalf("clean URL changed: %s", got)
	}
}

func TestRegionFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.avito.ru/novosibirsk/telefony/iphone_123", "novosibirsk"},
		{"https://www.avito.ru/Moskva/noutbuki/macbook_1", "moskva"},
		{"https://www.avito.ru/", ""},
		{"", ""},
		{"://bad", ""},
	}

	for _, tc := range cases {
		if got := RegionFromURL(tc.url); got != tc.want {
			t.Fatalf("RegionFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
