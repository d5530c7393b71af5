package services

import (
	"strings"
	"testing"

	"avitowatch/models"
)

func TestNewListingMessage(t *testing.T) {
	criterion := &models.SearchCriterion{Keyword: "macbook", Region: "novosibirsk"}
	listing := &models.CanonicalListing{
		RawListing: models.RawListing{
			Title:    "MacBook Pro 13",
			Price:    35000,
			Location: "Новосибирск",
		},
		NormalizedURL: "https://www.avito.ru/novosibirsk/noutbuki/macbook_1",
	}

	msg := newListingMessage(criterion, listing)
	for _, want := range []string{
		"<b>macbook</b>",
		"<b>MacBook Pro 13</b>",
		"💰 35000₽",
		"📍 Новосибирск",
		`<a href="https://www.avito.ru/novosibirsk/noutbuki/macbook_1">Ссылка</a>`,
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestNoNewListingsMessage(t *testing.T) {
	criterion := &models.SearchCriterion{Keyword: "macbook"}

	msg := noNewListingsMessage(criterion)
	want := "🔁 По фильтру \"macbook\" новых объявлений нет."
	if msg != want {
		t.Fatalf("expected %q, got %q", want, msg)
	}
}
