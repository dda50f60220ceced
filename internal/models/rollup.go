package models

import "time"

// Rollup is one pre-aggregated analytics row for a
// (date, slot, campaign, page) bucket. Counters are replaced wholesale by
// the aggregator on every run so re-aggregation is idempotent; request
// serving code never writes these rows.
type Rollup struct {
	Date        time.Time `json:"date"` // UTC midnight of the bucket day
	SlotID      string    `json:"slot_id"`
	CampaignID  string    `json:"campaign_id,omitempty"`
	Page        string    `json:"page"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Revenue     int64     `json:"revenue"` // minor currency units, truncated
	UniqueViews int64     `json:"unique_views"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the bucket identity used for upserts.
func (r *Rollup) Key() RollupKey {
	return RollupKey{
		Date:       r.Date.UTC().Truncate(24 * time.Hour),
		SlotID:     r.SlotID,
		CampaignID: r.CampaignID,
		Page:       r.Page,
	}
}

// RollupKey identifies a rollup bucket.
type RollupKey struct {
	Date       time.Time
	SlotID     string
	CampaignID string
	Page       string
}
