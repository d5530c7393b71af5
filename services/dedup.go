package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"avitowatch/dates"
	"avitowatch/identity"
	"avitowatch/models"
	"avitowatch/storage"
)

// SeenStore is the persistence the gate needs. InsertSeen must be safe to
// call concurrently for the same normalized URL and return
// storage.ErrDuplicate when another writer got there first.
type SeenStore interface {
	SeenExists(ctx context.Context, normalizedURL string) (bool, error)
	InsertSeen(ctx context.Context, record *models.SeenListingRecord) error
}

// DedupGate admits only listings whose normalized URL has never been
// persisted, recording each admitted one. There is no lock around
// exists+insert: the store's uniqueness constraint resolves the race, and a
// losing insert is reinterpreted as "already seen".
type DedupGate struct {
	store SeenStore
}

func NewDedupGate(store SeenStore) *DedupGate {
	return &DedupGate{store: store}
}

// Canonicalize normalizes a raw listing's identity: URL stripped of query and
// fragment, date phrase resolved against now.
func Canonicalize(raw models.RawListing, now time.Time) models.CanonicalListing {
	return models.CanonicalListing{
		RawListing:    raw,
		NormalizedURL: identity.NormalizeListingURL(raw.URL),
		PostedTime:    dates.Parse(raw.PostedAt, now),
	}
}

// Admit returns the novel subset of listings, most recent first, persisting a
// seen record for each. Running Admit twice over the same input yields the
// full set and then the empty set.
func (g *DedupGate) Admit(ctx context.Context, listings []models.CanonicalListing, criterion *models.SearchCriterion) ([]models.CanonicalListing, error) {
	candidates := make([]models.CanonicalListing, len(listings))
	copy(candidates, listings)

	// Most recent first; ties keep extraction order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PostedTime.After(candidates[j].PostedTime)
	})

	var novel []models.CanonicalListing
	for _, listing := range candidates {
		seen, err := g.store.SeenExists(ctx, listing.NormalizedURL)
		if err != nil {
			return novel, err
		}
		if seen {
			continue
		}

		record := &models.SeenListingRecord{
			ID:            uuid.New(),
			NormalizedURL: listing.NormalizedURL,
			Title:         listing.Title,
			Price:         listing.Price,
			Location:      listing.Location,
			CriterionID:   criterion.ID,
			FirstSeenAt:   time.Now(),
		}
		if err := g.store.InsertSeen(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				// Lost the race to a concurrent pass; not novel.
				log.Printf("Dedup: %s inserted concurrently, skipping", listing.NormalizedURL)
				continue
			}
			return novel, err
		}
		novel = append(novel, listing)
	}
	return novel, nil
}
