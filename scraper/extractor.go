package scraper

import (
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"avitowatch/identity"
	"avitowatch/models"
)

// Defaults used when a card is missing a field. Explicit so tests can assert
// on them instead of relying on incidental fallback behavior.
const (
	defaultTitle    = "Без названия"
	defaultLocation = "неизвестно"
)

// organizationMarker flags company sellers in the seller block. A card
// without it is treated as a private seller; this is a known heuristic and
// can misclassify sellers that omit the marker.
const organizationMarker = "компания"

// Extractor pulls raw listings out of a rendered search-results document.
// Selector strategies are ordered most-specific first; the first one that
// matches at least one card wins and the rest are never tried.
type Extractor struct {
	baseURL    string
	strategies []string
}

func NewExtractor(baseURL string) *Extractor {
	return &Extractor{
		baseURL: baseURL,
		strategies: []string{
			`[data-marker="item"]`,
			`.iva-item-root-_lk9K`,
			`[data-marker*="item"]`,
			`.items-items-kAJAg .iva-item-root-_lk9K`,
		},
	}
}

// Extract never fails: an unrecognized page yields an empty slice, and a
// malformed card is dropped without aborting the batch.
func (e *Extractor) Extract(doc *goquery.Document) []models.RawListing {
	var nodes *goquery.Selection
	for _, strategy := range e.strategies {
		sel := doc.Find(strategy)
		if sel.Length() > 0 {
			log.Printf("Extractor: strategy %q matched %d cards", strategy, sel.Length())
			nodes = sel
			break
		}
	}
	if nodes == nil {
		log.Println("Extractor: no strategy matched")
		return nil
	}

	var listings []models.RawListing
	nodes.Each(func(i int, card *goquery.Selection) {
		listing, ok := e.extractCard(card)
		if !ok {
			log.Printf("Extractor: dropped card %d (no usable identity)", i)
			return
		}
		listings = append(listings, listing)
	})
	return listings
}

func (e *Extractor) extractCard(card *goquery.Selection) (models.RawListing, bool) {
	rawURL := e.extractURL(card)
	absURL := e.absoluteURL(rawURL)
	if rawURL != "" && absURL == "" {
		// Card points somewhere we cannot resolve; without a URL the
		// listing has no identity.
		return models.RawListing{}, false
	}

	listing := models.RawListing{
		Title:           e.extractTitle(card),
		Price:           e.extractPrice(card),
		URL:             absURL,
		PostedAt:        strings.TrimSpace(card.Find(`[data-marker="item-date"]`).First().Text()),
		IsPrivateSeller: e.extractPrivateSeller(card),
	}
	listing.Location = e.extractLocation(card, absURL)
	return listing, true
}

func (e *Extractor) extractTitle(card *goquery.Selection) string {
	if title := strings.TrimSpace(card.Find("h3").First().Text()); title != "" {
		return title
	}
	if title := strings.TrimSpace(card.Find(`[itemprop="name"]`).First().Text()); title != "" {
		return title
	}
	return defaultTitle
}

func (e *Extractor) extractPrice(card *goquery.Selection) int {
	if content, ok := card.Find(`meta[itemprop="price"]`).First().Attr("content"); ok {
		if price, err := strconv.Atoi(strings.TrimSpace(content)); err == nil {
			return price
		}
	}

	text := card.Find(`[data-marker="item-price"]`).First().Text()
	return digitsOf(text)
}

func (e *Extractor) extractURL(card *goquery.Selection) string {
	if href, ok := card.Find(`a[data-marker="item-title"]`).First().Attr("href"); ok {
		return href
	}
	var found string
	card.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "avito.ru/") || strings.HasPrefix(href, "/") {
			found = href
			return false
		}
		return true
	})
	return found
}

func (e *Extractor) extractPrivateSeller(card *goquery.Selection) bool {
	seller := card.Find(`[data-marker="item-seller"]`).First().Text()
	return !strings.Contains(strings.ToLower(seller), organizationMarker)
}

func (e *Extractor) extractLocation(card *goquery.Selection, absURL string) string {
	if loc := strings.TrimSpace(card.Find(`[data-marker="item-address"]`).First().Text()); loc != "" {
		return loc
	}
	if region := identity.RegionFromURL(absURL); region != "" {
		return region
	}
	return defaultLocation
}

// absoluteURL resolves a card href against the site base. Returns "" when the
// href cannot be parsed.
func (e *Extractor) absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return href
	}
	base, err := url.Parse(e.baseURL)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func digitsOf(s string) int {
	var result int
	var found bool
	for _, c := range s {
		if c >= '0' && c <= '9' {
			result = result*10 + int(c-'0')
			found = true
		}
	}
	if !found {
		return 0
	}
	return result
}
