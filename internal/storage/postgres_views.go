package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/adserver/internal/models"
)

// PostgresViewStore implements ViewStore using PostgreSQL.
type PostgresViewStore struct {
	pool *pgxpool.Pool
}

func NewPostgresViewStore(pool *pgxpool.Pool) *PostgresViewStore {
	return &PostgresViewStore{pool: pool}
}

func (s *PostgresViewStore) SaveView(ctx context.Context, v *models.View) error {
	if v == nil {
		return nil
	}

	// ON CONFLICT DO NOTHING makes client retries harmless: the id is the
	// idempotency key for at-least-once delivery.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO views (id, slot_id, campaign_id, session_id, ip_hash, user_agent, geo_country, page, view_type, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, v.ID, v.SlotID, nullString(v.CampaignID), v.SessionID, v.IPHash,
		nullString(v.UserAgent), nullString(v.GeoCountry), v.Page, v.ViewType, v.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

func (s *PostgresViewStore) ListByDate(ctx context.Context, date time.Time, page string) ([]*models.View, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	query := `
		SELECT id, slot_id, campaign_id, session_id, ip_hash, user_agent, geo_country, page, view_type, timestamp
		FROM views WHERE timestamp >= $1 AND timestamp < $2`
	args := []interface{}{day, next}
	if page != "" {
		query += ` AND page = $3`
		args = append(args, page)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer rows.Close()

	var views []*models.View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func scanView(row pgx.Row) (*models.View, error) {
	var v models.View
	var campaignID, userAgent, geoCountry *string

	err := row.Scan(&v.ID, &v.SlotID, &campaignID, &v.SessionID, &v.IPHash, &userAgent, &geoCountry, &v.Page, &v.ViewType, &v.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to scan view: %w", err)
	}

	if campaignID != nil {
		v.CampaignID = *campaignID
	}
	if userAgent != nil {
		v.UserAgent = *userAgent
	}
	if geoCountry != nil {
		v.GeoCountry = *geoCountry
	}
	return &v, nil
}

// PostgresRollupRepo implements RollupRepo using PostgreSQL.
type PostgresRollupRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRollupRepo(pool *pgxpool.Pool) *PostgresRollupRepo {
	return &PostgresRollupRepo{pool: pool}
}

func (r *PostgresRollupRepo) Upsert(ctx context.Context, ru *models.Rollup) error {
	if ru == nil {
		return nil
	}

	// Counters are replaced, not accumulated, so re-running an aggregation
	// for the same bucket converges to the same row.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics_rollups (date, slot_id, campaign_id, page, impressions, clicks, revenue, unique_views, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date, slot_id, campaign_id, page) DO UPDATE SET
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			revenue = EXCLUDED.revenue,
			unique_views = EXCLUDED.unique_views,
			updated_at = EXCLUDED.updated_at
	`, ru.Date.UTC().Truncate(24*time.Hour), ru.SlotID, ru.CampaignID, ru.Page,
		ru.Impressions, ru.Clicks, ru.Revenue, ru.UniqueViews, ru.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup: %w", err)
	}
	return nil
}

func (r *PostgresRollupRepo) GetRange(ctx context.Context, start, end time.Time, page string) ([]*models.Rollup, error) {
	query := `
		SELECT date, slot_id, campaign_id, page, impressions, clicks, revenue, unique_views, updated_at
		FROM analytics_rollups WHERE date >= $1 AND date <= $2`
	args := []interface{}{start.UTC().Truncate(24 * time.Hour), end.UTC().Truncate(24 * time.Hour)}
	if page != "" {
		query += ` AND page = $3`
		args = append(args, page)
	}
	query += ` ORDER BY date, page, slot_id, campaign_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*models.Rollup
	for rows.Next() {
		var ru models.Rollup
		if err := rows.Scan(&ru.Date, &ru.SlotID, &ru.CampaignID, &ru.Page,
			&ru.Impressions, &ru.Clicks, &ru.Revenue, &ru.UniqueViews, &ru.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, &ru)
	}
	return rollups, rows.Err()
}
