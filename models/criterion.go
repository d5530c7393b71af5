package models

import "time"

// User is a subscriber registered through the external chat interface.
type User struct {
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	Username   string    `json:"username" db:"username"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SearchCriterion is a user's saved search. Initialized flips false->true
// exactly once, after the first evaluation pass completes regardless of its
// outcome; until then the pass only seeds the seen-set and notifies nobody.
type SearchCriterion struct {
	ID          int64     `json:"id" db:"id"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"` // telegram id
	Keyword     string    `json:"keyword" db:"keyword"`
	MaxPrice    int       `json:"max_price" db:"max_price"` // 0 = unbounded
	Region      string    `json:"region" db:"region"`
	Initialized bool      `json:"initialized" db:"initialized"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Unbounded reports whether the criterion has no price ceiling.
func (c *SearchCriterion) Unbounded() bool {
	return c.MaxPrice == 0
}
