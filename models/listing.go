package models

import (
	"time"

	"github.com/google/uuid"
)

// RawListing is what the extractor pulls off a rendered search results page.
// It is ephemeral: never persisted as-is, only after canonicalization.
type RawListing struct {
	Title           string `json:"title"`
	Price           int    `json:"price"` // whole rubles
	URL             string `json:"url"`   // absolute
	Location        string `json:"location"`
	PostedAt        string `json:"posted_at"` // free-text date phrase ("Сегодня 12:40", "5 марта")
	IsPrivateSeller bool   `json:"is_private_seller"`
}

// CanonicalListing is a RawListing with its identity normalized: the URL is
// stripped of query string and fragment, and the posted date is resolved to an
// absolute timestamp. NormalizedURL is the global identity key.
type CanonicalListing struct {
	RawListing
	NormalizedURL string    `json:"normalized_url"`
	PostedTime    time.Time `json:"posted_time"` // epoch zero when the phrase was unparseable
}

// SeenListingRecord is the persisted dedup record. Created exactly once per
// unique normalized URL; never updated or deleted by the pipeline.
type SeenListingRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	NormalizedURL string    `json:"normalized_url" db:"normalized_url"`
	Title         string    `json:"title" db:"title"`
	Price         int       `json:"price" db:"price"`
	Location      string    `json:"location" db:"location"`
	CriterionID   int64     `json:"criterion_id" db:"criterion_id"`
	FirstSeenAt   time.Time `json:"first_seen_at" db:"first_seen_at"`
}

// EvaluatedListing pairs a canonical listing with the dedup verdict for it.
type EvaluatedListing struct {
	Listing CanonicalListing `json:"listing"`
	Novel   bool             `json:"novel"`
}
