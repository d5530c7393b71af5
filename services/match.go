package services

import (
	"sort"
	"strings"

	"avitowatch/identity"
	"avitowatch/models"
)

// MatchFilter applies a search criterion's predicates to extracted listings.
type MatchFilter struct{}

func NewMatchFilter() *MatchFilter {
	return &MatchFilter{}
}

// Apply keeps private-seller listings with a usable price and URL whose URL
// region matches the criterion. The region comes from the listing URL's first
// path segment, never from the displayed location text; the two can disagree
// and the URL wins. Output is pre-sorted so dated listings precede undated
// ones (stable otherwise).
func (f *MatchFilter) Apply(listings []models.RawListing, criterion *models.SearchCriterion) []models.RawListing {
	var matched []models.RawListing
	for _, listing := range listings {
		if !f.matches(&listing, criterion) {
			continue
		}
		matched = append(matched, listing)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PostedAt != "" && matched[j].PostedAt == ""
	})
	return matched
}

func (f *MatchFilter) matches(listing *models.RawListing, criterion *models.SearchCriterion) bool {
	if !listing.IsPrivateSeller {
		return false
	}
	if listing.Price <= 0 {
		return false
	}
	if !criterion.Unbounded() && listing.Price > criterion.MaxPrice {
		return false
	}
	if listing.URL == "" {
		return false
	}

	region := identity.RegionFromURL(listing.URL)
	if region == "" {
		return false
	}
	return strings.EqualFold(region, criterion.Region)
}
