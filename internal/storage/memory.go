package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/radiusdt/adserver/internal/models"
)

// In-memory implementations. Values are copied on the way in and copied
// again on the way out, mirroring how the postgres repos materialize fresh
// rows per query: callers may mutate what they get back without racing
// concurrent readers. Intended for development and tests.

// InMemoryProviderRepo stores providers in memory.
type InMemoryProviderRepo struct {
	mu        sync.RWMutex
	providers map[string]*models.Provider
}

func NewInMemoryProviderRepo() *InMemoryProviderRepo {
	return &InMemoryProviderRepo{providers: make(map[string]*models.Provider)}
}

func copyProvider(p *models.Provider) *models.Provider {
	cp := *p
	return &cp
}

func (r *InMemoryProviderRepo) ListAll(ctx context.Context) ([]*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		res = append(res, copyProvider(p))
	}
	return res, nil
}

func (r *InMemoryProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[id]; ok {
		return copyProvider(p), nil
	}
	return nil, nil
}

func (r *InMemoryProviderRepo) GetByName(ctx context.Context, name string) (*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if strings.EqualFold(p.Name, name) {
			return copyProvider(p), nil
		}
	}
	return nil, nil
}

func (r *InMemoryProviderRepo) Upsert(ctx context.Context, p *models.Provider) error {
	if p == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = copyProvider(p)
	return nil
}

// InMemoryCampaignRepo stores campaigns in memory.
type InMemoryCampaignRepo struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
}

func NewInMemoryCampaignRepo() *InMemoryCampaignRepo {
	return &InMemoryCampaignRepo{campaigns: make(map[string]*models.Campaign)}
}

func copyCampaign(c *models.Campaign) *models.Campaign {
	cp := *c
	return &cp
}

func (r *InMemoryCampaignRepo) ListAll(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		res = append(res, copyCampaign(c))
	}
	return res, nil
}

func (r *InMemoryCampaignRepo) ListByProvider(ctx context.Context, providerID string) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*models.Campaign
	for _, c := range r.campaigns {
		if c.ProviderID == providerID {
			res = append(res, copyCampaign(c))
		}
	}
	return res, nil
}

func (r *InMemoryCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.campaigns[id]; ok {
		return copyCampaign(c), nil
	}
	return nil, nil
}

func (r *InMemoryCampaignRepo) Upsert(ctx context.Context, c *models.Campaign) error {
	if c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = copyCampaign(c)
	return nil
}

// InMemorySlotRepo stores slots in memory.
type InMemorySlotRepo struct {
	mu    sync.RWMutex
	slots map[string]*models.Slot
}

func NewInMemorySlotRepo() *InMemorySlotRepo {
	return &InMemorySlotRepo{slots: make(map[string]*models.Slot)}
}

func copySlot(s *models.Slot) *models.Slot {
	cp := *s
	return &cp
}

func (r *InMemorySlotRepo) ListAll(ctx context.Context) ([]*models.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.Slot, 0, len(r.slots))
	for _, s := range r.slots {
		res = append(res, copySlot(s))
	}
	return res, nil
}

func (r *InMemorySlotRepo) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.slots[id]; ok {
		return copySlot(s), nil
	}
	return nil, nil
}

func (r *InMemorySlotRepo) GetByPlacement(ctx context.Context, position, page string) (*models.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.slots {
		if s.Position == position && s.Page == page {
			return copySlot(s), nil
		}
	}
	return nil, nil
}

func (r *InMemorySlotRepo) Upsert(ctx context.Context, s *models.Slot) error {
	if s == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[s.ID] = copySlot(s)
	return nil
}

// InMemoryAssignmentRepo stores slot assignments in memory.
type InMemoryAssignmentRepo struct {
	mu          sync.RWMutex
	assignments map[string]*models.SlotAssignment
}

func NewInMemoryAssignmentRepo() *InMemoryAssignmentRepo {
	return &InMemoryAssignmentRepo{assignments: make(map[string]*models.SlotAssignment)}
}

func copyAssignment(a *models.SlotAssignment) *models.SlotAssignment {
	cp := *a
	return &cp
}

func (r *InMemoryAssignmentRepo) ListAll(ctx context.Context) ([]*models.SlotAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.SlotAssignment, 0, len(r.assignments))
	for _, a := range r.assignments {
		res = append(res, copyAssignment(a))
	}
	return res, nil
}

func (r *InMemoryAssignmentRepo) ListBySlot(ctx context.Context, slotID string) ([]*models.SlotAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*models.SlotAssignment
	for _, a := range r.assignments {
		if a.SlotID == slotID {
			res = append(res, copyAssignment(a))
		}
	}
	return res, nil
}

func (r *InMemoryAssignmentRepo) GetByID(ctx context.Context, id string) (*models.SlotAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.assignments[id]; ok {
		return copyAssignment(a), nil
	}
	return nil, nil
}

func (r *InMemoryAssignmentRepo) Upsert(ctx context.Context, a *models.SlotAssignment) error {
	if a == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments[a.ID] = copyAssignment(a)
	return nil
}

func (r *InMemoryAssignmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, id)
	return nil
}

// InMemoryViewStore stores raw view events in memory with a per-day index.
type InMemoryViewStore struct {
	mu    sync.RWMutex
	views map[string]*models.View

	// date (UTC midnight) -> []view_id
	viewsByDate map[time.Time][]string
}

func NewInMemoryViewStore() *InMemoryViewStore {
	return &InMemoryViewStore{
		views:       make(map[string]*models.View),
		viewsByDate: make(map[time.Time][]string),
	}
}

func (s *InMemoryViewStore) SaveView(ctx context.Context, v *models.View) error {
	if v == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.views[v.ID] = &cp
	day := v.Timestamp.UTC().Truncate(24 * time.Hour)
	s.viewsByDate[day] = append(s.viewsByDate[day], v.ID)
	return nil
}

func (s *InMemoryViewStore) ListByDate(ctx context.Context, date time.Time, page string) ([]*models.View, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.viewsByDate[day]
	res := make([]*models.View, 0, len(ids))
	for _, id := range ids {
		v := s.views[id]
		if v == nil {
			continue
		}
		if page != "" && v.Page != page {
			continue
		}
		cp := *v
		res = append(res, &cp)
	}
	return res, nil
}

// InMemoryRollupRepo stores aggregated analytics rows in memory.
type InMemoryRollupRepo struct {
	mu      sync.RWMutex
	rollups map[models.RollupKey]*models.Rollup
}

func NewInMemoryRollupRepo() *InMemoryRollupRepo {
	return &InMemoryRollupRepo{rollups: make(map[models.RollupKey]*models.Rollup)}
}

func (r *InMemoryRollupRepo) Upsert(ctx context.Context, ru *models.Rollup) error {
	if ru == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ru
	r.rollups[ru.Key()] = &cp
	return nil
}

func (r *InMemoryRollupRepo) GetRange(ctx context.Context, start, end time.Time, page string) ([]*models.Rollup, error) {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*models.Rollup
	for key, ru := range r.rollups {
		if key.Date.Before(start) || key.Date.After(end) {
			continue
		}
		if page != "" && key.Page != page {
			continue
		}
		cp := *ru
		res = append(res, &cp)
	}
	return res, nil
}
