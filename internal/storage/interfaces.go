package storage

import (
	"context"
	"time"

	"github.com/radiusdt/adserver/internal/models"
)

// Repositories return (nil, nil) for lookups that miss: a missing row is a
// normal outcome for the serving path, not an error. Errors are reserved for
// the backing store misbehaving.

// =============================================
// PROVIDER REPOSITORY
// =============================================

// ProviderRepo defines operations for ad provider storage.
type ProviderRepo interface {
	ListAll(ctx context.Context) ([]*models.Provider, error)
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	GetByName(ctx context.Context, name string) (*models.Provider, error)
	Upsert(ctx context.Context, p *models.Provider) error
}

// =============================================
// CAMPAIGN REPOSITORY
// =============================================

// CampaignRepo defines operations for campaign storage.
type CampaignRepo interface {
	ListAll(ctx context.Context) ([]*models.Campaign, error)
	ListByProvider(ctx context.Context, providerID string) ([]*models.Campaign, error)
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	Upsert(ctx context.Context, c *models.Campaign) error
}

// =============================================
// SLOT REPOSITORY
// =============================================

// SlotRepo defines operations for slot storage.
type SlotRepo interface {
	ListAll(ctx context.Context) ([]*models.Slot, error)
	GetByID(ctx context.Context, id string) (*models.Slot, error)
	GetByPlacement(ctx context.Context, position, page string) (*models.Slot, error)
	Upsert(ctx context.Context, s *models.Slot) error
}

// =============================================
// ASSIGNMENT REPOSITORY
// =============================================

// AssignmentRepo defines operations for slot assignment storage.
type AssignmentRepo interface {
	ListAll(ctx context.Context) ([]*models.SlotAssignment, error)
	ListBySlot(ctx context.Context, slotID string) ([]*models.SlotAssignment, error)
	GetByID(ctx context.Context, id string) (*models.SlotAssignment, error)
	Upsert(ctx context.Context, a *models.SlotAssignment) error
	Delete(ctx context.Context, id string) error
}

// =============================================
// VIEW STORE
// =============================================

// ViewStore defines append-only storage for raw view events. Concurrent
// writers never conflict: every write is a fresh row under a fresh id.
type ViewStore interface {
	SaveView(ctx context.Context, v *models.View) error
	// ListByDate returns all views with a timestamp in [date, date+24h),
	// date interpreted as UTC midnight. An empty page matches all pages.
	ListByDate(ctx context.Context, date time.Time, page string) ([]*models.View, error)
}

// =============================================
// ROLLUP REPOSITORY
// =============================================

// RollupRepo defines storage for aggregated analytics rows. Upsert replaces
// the counters of an existing bucket rather than accumulating into them.
type RollupRepo interface {
	Upsert(ctx context.Context, r *models.Rollup) error
	GetRange(ctx context.Context, start, end time.Time, page string) ([]*models.Rollup, error)
}
