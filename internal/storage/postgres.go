package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/adserver/internal/models"
)

// PostgresProviderRepo implements ProviderRepo using PostgreSQL.
type PostgresProviderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresProviderRepo(pool *pgxpool.Pool) *PostgresProviderRepo {
	return &PostgresProviderRepo{pool: pool}
}

const providerColumns = `id, name, network, is_active, credentials, settings, created_at, updated_at`

func scanProvider(row pgx.Row) (*models.Provider, error) {
	var p models.Provider
	var credentials *string
	var settingsJSON []byte

	err := row.Scan(&p.ID, &p.Name, &p.Network, &p.IsActive, &credentials, &settingsJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan provider: %w", err)
	}

	if credentials != nil {
		p.Credentials = *credentials
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &p.Settings); err != nil {
			return nil, fmt.Errorf("failed to parse provider settings: %w", err)
		}
	}
	return &p, nil
}

func (r *PostgresProviderRepo) ListAll(ctx context.Context) ([]*models.Provider, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *PostgresProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id))
}

func (r *PostgresProviderRepo) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE lower(name) = lower($1)`, name))
}

func (r *PostgresProviderRepo) Upsert(ctx context.Context, p *models.Provider) error {
	settingsJSON, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal provider settings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO providers (id, name, network, is_active, credentials, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			network = EXCLUDED.network,
			is_active = EXCLUDED.is_active,
			credentials = EXCLUDED.credentials,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Network, p.IsActive, nullString(p.Credentials), settingsJSON, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert provider: %w", err)
	}
	return nil
}

// PostgresCampaignRepo implements CampaignRepo using PostgreSQL.
type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool) *PostgresCampaignRepo {
	return &PostgresCampaignRepo{pool: pool}
}

const campaignColumns = `id, provider_id, name, ad_type, ad_code, dimensions, is_active,
	start_date, end_date, targeting, cpm_rate, click_url, created_at, updated_at`

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	var dimensions, clickURL *string
	var targetingJSON []byte

	err := row.Scan(
		&c.ID, &c.ProviderID, &c.Name, &c.AdType, &c.AdCode, &dimensions, &c.IsActive,
		&c.StartDate, &c.EndDate, &targetingJSON, &c.CPMRate, &clickURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	if dimensions != nil {
		c.Dimensions = *dimensions
	}
	if clickURL != nil {
		c.ClickURL = *clickURL
	}
	if len(targetingJSON) > 0 {
		if err := json.Unmarshal(targetingJSON, &c.Targeting); err != nil {
			return nil, fmt.Errorf("failed to parse campaign targeting: %w", err)
		}
	}
	return &c, nil
}

func (r *PostgresCampaignRepo) ListAll(ctx context.Context) ([]*models.Campaign, error) {
	return r.list(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
}

func (r *PostgresCampaignRepo) ListByProvider(ctx context.Context, providerID string) ([]*models.Campaign, error) {
	return r.list(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE provider_id = $1 ORDER BY created_at DESC`, providerID)
}

func (r *PostgresCampaignRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.Campaign, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PostgresCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
}

func (r *PostgresCampaignRepo) Upsert(ctx context.Context, c *models.Campaign) error {
	targetingJSON, err := json.Marshal(c.Targeting)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign targeting: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO campaigns (
			id, provider_id, name, ad_type, ad_code, dimensions, is_active,
			start_date, end_date, targeting, cpm_rate, click_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			name = EXCLUDED.name,
			ad_type = EXCLUDED.ad_type,
			ad_code = EXCLUDED.ad_code,
			dimensions = EXCLUDED.dimensions,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			targeting = EXCLUDED.targeting,
			cpm_rate = EXCLUDED.cpm_rate,
			click_url = EXCLUDED.click_url,
			updated_at = EXCLUDED.updated_at
	`,
		c.ID, c.ProviderID, c.Name, c.AdType, c.AdCode, nullString(c.Dimensions), c.IsActive,
		c.StartDate, c.EndDate, targetingJSON, c.CPMRate, nullString(c.ClickURL), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
