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

// PostgresSlotRepo implements SlotRepo using PostgreSQL.
type PostgresSlotRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSlotRepo(pool *pgxpool.Pool) *PostgresSlotRepo {
	return &PostgresSlotRepo{pool: pool}
}

const slotColumns = `id, position, page, is_active, ad_provider, ad_code, settings, created_at, updated_at`

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var s models.Slot
	var adProvider, adCode *string
	var settingsJSON []byte

	err := row.Scan(&s.ID, &s.Position, &s.Page, &s.IsActive, &adProvider, &adCode, &settingsJSON, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan slot: %w", err)
	}

	if adProvider != nil {
		s.AdProvider = *adProvider
	}
	if adCode != nil {
		s.AdCode = *adCode
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &s.Settings); err != nil {
			return nil, fmt.Errorf("failed to parse slot settings: %w", err)
		}
	}
	return &s, nil
}

func (r *PostgresSlotRepo) ListAll(ctx context.Context) ([]*models.Slot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY page, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PostgresSlotRepo) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
}

func (r *PostgresSlotRepo) GetByPlacement(ctx context.Context, position, page string) (*models.Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE position = $1 AND page = $2`, position, page))
}

func (r *PostgresSlotRepo) Upsert(ctx context.Context, s *models.Slot) error {
	settingsJSON, err := json.Marshal(s.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal slot settings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO slots (id, position, page, is_active, ad_provider, ad_code, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			page = EXCLUDED.page,
			is_active = EXCLUDED.is_active,
			ad_provider = EXCLUDED.ad_provider,
			ad_code = EXCLUDED.ad_code,
			settings = EXCLUDED.settings,
			updated_at = EXCLUDED.updated_at
	`, s.ID, s.Position, s.Page, s.IsActive, nullString(s.AdProvider), nullString(s.AdCode), settingsJSON, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert slot: %w", err)
	}
	return nil
}

// PostgresAssignmentRepo implements AssignmentRepo using PostgreSQL.
type PostgresAssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAssignmentRepo(pool *pgxpool.Pool) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{pool: pool}
}

const assignmentColumns = `id, slot_id, campaign_id, priority, is_active, assigned_by, assigned_at`

func scanAssignment(row pgx.Row) (*models.SlotAssignment, error) {
	var a models.SlotAssignment
	var assignedBy *string

	err := row.Scan(&a.ID, &a.SlotID, &a.CampaignID, &a.Priority, &a.IsActive, &assignedBy, &a.AssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}

	if assignedBy != nil {
		a.AssignedBy = *assignedBy
	}
	return &a, nil
}

func (r *PostgresAssignmentRepo) ListAll(ctx context.Context) ([]*models.SlotAssignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM slot_assignments ORDER BY assigned_at DESC`)
}

func (r *PostgresAssignmentRepo) ListBySlot(ctx context.Context, slotID string) ([]*models.SlotAssignment, error) {
	return r.list(ctx,
		`SELECT `+assignmentColumns+` FROM slot_assignments WHERE slot_id = $1 ORDER BY priority DESC, assigned_at DESC`,
		slotID)
}

func (r *PostgresAssignmentRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.SlotAssignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.SlotAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (r *PostgresAssignmentRepo) GetByID(ctx context.Context, id string) (*models.SlotAssignment, error) {
	return scanAssignment(r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM slot_assignments WHERE id = $1`, id))
}

func (r *PostgresAssignmentRepo) Upsert(ctx context.Context, a *models.SlotAssignment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slot_assignments (id, slot_id, campaign_id, priority, is_active, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			slot_id = EXCLUDED.slot_id,
			campaign_id = EXCLUDED.campaign_id,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			assigned_by = EXCLUDED.assigned_by
	`, a.ID, a.SlotID, a.CampaignID, a.Priority, a.IsActive, nullString(a.AssignedBy), a.AssignedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

func (r *PostgresAssignmentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM slot_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}
