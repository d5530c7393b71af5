package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func loadDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	return doc
}

func TestExtract_Basic(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := loadDoc(t, "search_results.html")

	listings := extractor.Extract(doc)
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}

	first := listings[0]
	if first.Title != "iPhone 13 128GB" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Price != 35000 {
		t.Fatalf("expected price 35000, got %d", first.Price)
	}
	if first.URL != "https://www.avito.ru/novosibirsk/telefony/iphone_13_128gb_2890104333?context=H4sIAAA" {
		t.Fatalf("relative href not resolved: %s", first.URL)
	}
	if first.PostedAt != "Сегодня 12:40" {
		t.Fatalf("unexpected date phrase %q", first.PostedAt)
	}
	if !first.IsPrivateSeller {
		t.Fatal("expected private seller")
	}
	if first.Location != "Новосибирск, Центральный район" {
		t.Fatalf("unexpected location %q", first.Location)
	}

	second := listings[1]
	if second.Price != 42500 {
		t.Fatalf("price from text not parsed: %d", second.Price)
	}
	if second.IsPrivateSeller {
		t.Fatal("company seller classified as private")
	}
	if !strings.HasPrefix(second.URL, "https://www.avito.ru/novosibirsk/telefony/iphone_12_pro") {
		t.Fatalf("absolute href mangled: %s", second.URL)
	}
}

func TestExtract_FieldDefaults(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := loadDoc(t, "search_results.html")

	listings := extractor.Extract(doc)
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}

	bare := listings[2]
	if bare.Title != defaultTitle {
		t.Fatalf("expected default title, got %q", bare.Title)
	}
	if bare.Price != 12000 {
		t.Fatalf("expected price 12000, got %d", bare.Price)
	}
	// No address block: location falls back to the URL region.
	if bare.Location != "novosibirsk" {
		t.Fatalf("expected location from URL, got %q", bare.Location)
	}
	if bare.PostedAt != "" {
		t.Fatalf("expected empty date phrase, got %q", bare.PostedAt)
	}
	if !bare.IsPrivateSeller {
		t.Fatal("empty seller block should default to private")
	}
}

func TestExtract_FallbackStrategy(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := loadDoc(t, "search_results_fallback.html")

	listings := extractor.Extract(doc)
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	listing := listings[0]
	if listing.Title != "MacBook Air M1" {
		t.Fatalf("itemprop title not used: %q", listing.Title)
	}
	if listing.Price != 55000 {
		t.Fatalf("expected price 55000, got %d", listing.Price)
	}
	if listing.URL != "https://www.avito.ru/novosibirsk/noutbuki/macbook_air_m1_777?utm_source=feed" {
		t.Fatalf("fallback anchor not used: %s", listing.URL)
	}
}

func TestExtract_FirstStrategyWins(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := docFromString(t, `
		<div data-marker="item">
			<a data-marker="item-title" href="/novosibirsk/telefony/primary_1"><h3>Primary</h3></a>
			<meta itemprop="price" content="1000">
		</div>
		<div class="iva-item-root-_lk9K">
			<a href="/novosibirsk/telefony/secondary_2"><h3>Secondary</h3></a>
			<meta itemprop="price" content="2000">
		</div>`)

	listings := extractor.Extract(doc)
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].Title != "Primary" {
		t.Fatalf("later strategy leaked in: %q", listings[0].Title)
	}
}

func TestExtract_EmptyPage(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := docFromString(t, `<html><body><h1>Ничего не найдено</h1></body></html>`)

	if listings := extractor.Extract(doc); len(listings) != 0 {
		t.Fatalf("expected no listings, got %d", len(listings))
	}
}

func TestExtract_BadCardDoesNotAbortBatch(t *testing.T) {
	extractor := NewExtractor("https://www.avito.ru")
	doc := docFromString(t, `
		<div data-marker="item">
			<a data-marker="item-title" href="://bad"><h3>Broken</h3></a>
		</div>
		<div data-marker="item">
			<a data-marker="item-title" href="/novosibirsk/telefony/ok_1"><h3>Fine</h3></a>
			<meta itemprop="price" content="500">
		</div>`)

	listings := extractor.Extract(doc)
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].Title != "Fine" {
		t.Fatalf("wrong survivor: %q", listings[0].Title)
	}
}
