package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"avitowatch/models"
)

// ErrDuplicate is returned by InsertSeen when another writer already persisted
// the same normalized URL. Callers treat it as "already seen", not a failure.
var ErrDuplicate = errors.New("record already exists")

// PostgresStore holds subscribers, their search criteria, and the seen-listing
// set. Requires a unique index on seen_listings.normalized_url; that index is
// the only thing preventing duplicate notifications when two passes race.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// =============================================================================
// Users
// =============================================================================

func (s *PostgresStore) EnsureUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (telegram_id, username, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, u.TelegramID, u.Username, time.Now())
	return err
}

// =============================================================================
// Search criteria
// =============================================================================

func (s *PostgresStore) CreateCriterion(ctx context.Context, c *models.SearchCriterion) error {
	query := `
		INSERT INTO search_criteria (owner_id, keyword, max_price, region, initialized, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING id`

	return s.pool.QueryRow(ctx, query, c.OwnerID, c.Keyword, c.MaxPrice, c.Region).Scan(&c.ID)
}

func (s *PostgresStore) ListActiveCriteria(ctx context.Context) ([]models.SearchCriterion, error) {
	query := `
		SELECT id, owner_id, keyword, max_price, region, initialized, created_at
		FROM search_criteria
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []models.SearchCriterion
	for rows.Next() {
		var c models.SearchCriterion
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Keyword, &c.MaxPrice, &c.Region, &c.Initialized, &c.CreatedAt); err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (s *PostgresStore) ListCriteriaByOwner(ctx context.Context, ownerID int64) ([]models.SearchCriterion, error) {
	query := `
		SELECT id, owner_id, keyword, max_price, region, initialized, created_at
		FROM search_criteria
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []models.SearchCriterion
	for rows.Next() {
		var c models.SearchCriterion
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Keyword, &c.MaxPrice, &c.Region, &c.Initialized, &c.CreatedAt); err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (s *PostgresStore) MarkInitialized(ctx context.Context, criterionID int64) error {
	query := `UPDATE search_criteria SET initialized = TRUE WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, criterionID)
	return err
}

func (s *PostgresStore) DeleteCriterion(ctx context.Context, criterionID int64) error {
	query := `DELETE FROM search_criteria WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, criterionID)
	return err
}

// =============================================================================
// Seen listings
// =============================================================================

func (s *PostgresStore) SeenExists(ctx context.Context, normalizedURL string) (bool, error) {
	query := `SELECT id FROM seen_listings WHERE normalized_url = $1 LIMIT 1`

	var id string
	err := s.pool.QueryRow(ctx, query, normalizedURL).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) InsertSeen(ctx context.Context, r *models.SeenListingRecord) error {
	query := `
		INSERT INTO seen_listings (id, normalized_url, title, price, location, criterion_id, first_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.NormalizedURL, r.Title, r.Price, r.Location, r.CriterionID, r.FirstSeenAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) ListSeenByCriterion(ctx context.Context, criterionID int64) ([]models.SeenListingRecord, error) {
	query := `
		SELECT id, normalized_url, title, price, location, criterion_id, first_seen_at
		FROM seen_listings
		WHERE criterion_id = $1
		ORDER BY first_seen_at DESC`

	rows, err := s.pool.Query(ctx, query, criterionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SeenListingRecord
	for rows.Next() {
		var r models.SeenListingRecord
		if err := rows.Scan(&r.ID, &r.NormalizedURL, &r.Title, &r.Price, &r.Location, &r.CriterionID, &r.FirstSeenAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
