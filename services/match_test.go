package services

import (
	"testing"

	"avitowatch/models"
)

func privateListing(price int, url string) models.RawListing {
	return models.RawListing{
		Title:           "test",
		Price:           price,
		URL:             url,
		IsPrivateSeller: true,
	}
}

func TestMatchFilter_PriceCeiling(t *testing.T) {
	filter := NewMatchFilter()
	criterion := &models.SearchCriterion{Keyword: "macbook", MaxPrice: 40000, Region: "novosibirsk"}

	listings := []models.RawListing{
		privateListing(35000, "https://www.avito.ru/novosibirsk/noutbuki/macbook_1"),
		privateListing(45000, "https://www.avito.ru/novosibirsk/noutbuki/macbook_2"),
		privateListing(0, "https://www.avito.ru/novosibirsk/noutbuki/macbook_3"),
	}

	matched := filter.Apply(listings, criterion)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if matched[0].Price != 35000 {
		t.Fatalf("wrong listing kept: %d", matched[0].Price)
	}
}

func TestMatchFilter_UnboundedStillRequiresPrice(t *testing.T) {
	filter := NewMatchFilter()
	criterion := &models.SearchCriterion{Keyword: "macbook", MaxPrice: 0, Region: "novosibirsk"}

	listings := []models.RawListing{
		privateListing(999999, "https://www.avito.ru/novosibirsk/noutbuki/macbook_1"),
		privateListing(0, "https://www.avito.ru/novosibirsk/noutbuki/macbook_2"),
	}

	matched := filter.Apply(listings, criterion)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if matched[0].Price != 999999 {
		t.Fatalf("wrong listing kept: %d", matched[0].Price)
	}
}

func TestMatchFilter_CompanySellerExcluded(t *testing.T) {
	filter := NewMatchFilter()
	criterion := &models.SearchCriterion{Keyword: "iphone", MaxPrice: 50000, Region: "novosibirsk"}

	listing := privateListing(30000, "https://www.avito.ru/novosibirsk/telefony/iphone_1")
	listing.IsPrivateSeller = false

	if matched := filter.Apply([]models.RawListing{listing}, criterion); len(matched) != 0 {
		t.Fatalf("company listing passed the filter: %d", len(matched))
	}
}

func TestMatchFilter_RegionFromURL(t *testing.T) {
	filter := NewMatchFilter()
	criterion := &models.SearchCriterion{Keyword: "iphone", MaxPrice: 50000, Region: "novosibirsk"}

	listings := []models.RawListing{
		privateListing(30000, "https://www.avito.ru/moskva/telefony/iphone_1"),
		privateListing(30000, "https://www.avito.ru/Novosibirsk/telefony/iphone_2"),
		privateListing(30000, ""),
	}
	// Displayed location must not override the URL region.
	listings[0].Location = "Новосибирск"

	matched := filter.Apply(listings, criterion)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if matched[0].URL != "https://www.avito.ru/Novosibirsk/telefony/iphone_2" {
		t.Fatalf("wrong listing kept: %s", matched[0].URL)
	}
}

func TestMatchFilter_DatedBeforeUndated(t *testing.T) {
	filter := NewMatchFilter()
	criterion := &models.SearchCriterion{Keyword: "iphone", MaxPrice: 50000, Region: "novosibirsk"}

	undated := privateListing(30000, "https://www.avito.ru/novosibirsk/telefony/iphone_1")
	dated := privateListing(31000, "https://www.avito.ru/novosibirsk/telefony/iphone_2")
	dated.PostedAt = "Сегодня 10:00"

	matched := filter.Apply([]models.RawListing{undated, dated}, criterion)
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
	if matched[0].PostedAt == "" {
		t.Fatal("undated listing sorted before dated one")
	}
}
