package adserver

import (
	"context"
	"sort"
	"time"

	"github.com/radiusdt/adserver/internal/metrics"
	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
	"go.uber.org/zap"
)

// AggregatorService rolls raw view rows up into per-day analytics buckets.
// A run recomputes every bucket it touches from scratch and replaces the
// stored counters, so re-running after a backfill is safe.
type AggregatorService struct {
	views     storage.ViewStore
	campaigns storage.CampaignRepo
	rollups   storage.RollupRepo
	locker    RollupLocker
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAggregatorService constructs an AggregatorService. metrics may be nil.
func NewAggregatorService(
	views storage.ViewStore,
	campaigns storage.CampaignRepo,
	rollups storage.RollupRepo,
	locker RollupLocker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AggregatorService {
	return &AggregatorService{
		views:     views,
		campaigns: campaigns,
		rollups:   rollups,
		locker:    locker,
		metrics:   m,
		logger:    logger,
	}
}

type bucket struct {
	slotID     string
	campaignID string
	page       string

	impressions int64
	clicks      int64
	sessions    map[string]struct{}
}

// Rollup aggregates all views of the given UTC day, optionally restricted
// to one page, and upserts one rollup row per (slot, campaign, page)
// bucket. It returns the rows in a deterministic order.
func (s *AggregatorService) Rollup(ctx context.Context, date time.Time, page string) ([]*models.Rollup, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	start := time.Now()

	release, err := s.locker.Lock(ctx, day.Format("2006-01-02")+":"+page)
	if err != nil {
		return nil, storageErr(err)
	}
	defer release()

	views, err := s.views.ListByDate(ctx, day, page)
	if err != nil {
		return nil, storageErr(err)
	}

	buckets := make(map[models.RollupKey]*bucket)
	for _, v := range views {
		key := models.RollupKey{Date: day, SlotID: v.SlotID, CampaignID: v.CampaignID, Page: v.Page}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				slotID:     v.SlotID,
				campaignID: v.CampaignID,
				page:       v.Page,
				sessions:   make(map[string]struct{}),
			}
			buckets[key] = b
		}

		switch v.ViewType {
		case models.ViewImpression:
			b.impressions++
		case models.ViewClick:
			b.clicks++
		}
		b.sessions[v.SessionID] = struct{}{}
	}

	now := time.Now().UTC()
	rollups := make([]*models.Rollup, 0, len(buckets))
	for _, b := range buckets {
		ru := &models.Rollup{
			Date:        day,
			SlotID:      b.slotID,
			CampaignID:  b.campaignID,
			Page:        b.page,
			Impressions: b.impressions,
			Clicks:      b.clicks,
			UniqueViews: int64(len(b.sessions)),
			UpdatedAt:   now,
		}
		ru.Revenue = s.revenueFor(ctx, b.campaignID, b.impressions)
		rollups = append(rollups, ru)
	}

	sort.Slice(rollups, func(i, j int) bool {
		a, b := rollups[i], rollups[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.SlotID != b.SlotID {
			return a.SlotID < b.SlotID
		}
		return a.CampaignID < b.CampaignID
	})

	for _, ru := range rollups {
		if err := s.rollups.Upsert(ctx, ru); err != nil {
			if s.metrics != nil {
				s.metrics.RecordRollupRun("error", time.Since(start))
			}
			return nil, storageErr(err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordRollupRun("ok", time.Since(start))
	}
	s.logger.Info("rollup completed",
		zap.String("date", day.Format("2006-01-02")),
		zap.String("page", page),
		zap.Int("views", len(views)),
		zap.Int("buckets", len(rollups)),
	)
	return rollups, nil
}

// revenueFor computes accrued revenue in minor units, truncated: CPM is per
// 1000 impressions and partial thousandths round down so revenue is never
// over-reported. Orphaned campaign ids (row deleted or no ad shown) accrue
// nothing but still keep their counters.
func (s *AggregatorService) revenueFor(ctx context.Context, campaignID string, impressions int64) int64 {
	if campaignID == "" {
		return 0
	}
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		s.logger.Warn("campaign lookup failed during rollup",
			zap.String("campaign_id", campaignID),
			zap.Error(err),
		)
		return 0
	}
	if campaign == nil {
		return 0
	}
	return campaign.CPMRate * impressions / 1000
}

// GetRollups returns the stored rollup rows for [start, end], optionally
// filtered by page.
func (s *AggregatorService) GetRollups(ctx context.Context, start, end time.Time, page string) ([]*models.Rollup, error) {
	list, err := s.rollups.GetRange(ctx, start, end, page)
	return list, storageErr(err)
}
