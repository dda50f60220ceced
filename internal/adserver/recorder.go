package adserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/adserver/internal/geo"
	"github.com/radiusdt/adserver/internal/iphash"
	"github.com/radiusdt/adserver/internal/metrics"
	"github.com/radiusdt/adserver/internal/models"
	"github.com/radiusdt/adserver/internal/storage"
	"go.uber.org/zap"
)

// ViewEvent is the client-reported payload for one impression or click.
// RemoteIP is the connecting address as seen by the server; it is hashed
// and discarded, never persisted.
type ViewEvent struct {
	SlotID     string          `json:"slot_id"`
	CampaignID string          `json:"campaign_id,omitempty"`
	SessionID  string          `json:"session_id"`
	UserAgent  string          `json:"user_agent,omitempty"`
	Page       string          `json:"page"`
	ViewType   models.ViewType `json:"view_type"`

	RemoteIP string `json:"-"`
}

// RecorderService appends view rows. It trusts the widget's one-impression-
// per-mount guard and performs no dedup of its own unless the optional
// idempotency guard is configured; aggregation happens elsewhere so the
// write path stays O(1).
type RecorderService struct {
	store   storage.ViewStore
	hasher  *iphash.Hasher
	geo     geo.Provider
	deduper ViewDeduper
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecorderService constructs a RecorderService. geo, deduper and metrics
// may be nil.
func NewRecorderService(
	store storage.ViewStore,
	hasher *iphash.Hasher,
	geoProvider geo.Provider,
	deduper ViewDeduper,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RecorderService {
	return &RecorderService{
		store:   store,
		hasher:  hasher,
		geo:     geoProvider,
		deduper: deduper,
		metrics: m,
		logger:  logger,
	}
}

// RecordView validates the event and persists one immutable view row with a
// server-assigned id and timestamp.
func (s *RecorderService) RecordView(ctx context.Context, ev ViewEvent) (*models.View, error) {
	now := time.Now().UTC()

	v := &models.View{
		ID:         uuid.NewString(),
		SlotID:     ev.SlotID,
		CampaignID: ev.CampaignID,
		SessionID:  ev.SessionID,
		UserAgent:  ev.UserAgent,
		Page:       ev.Page,
		ViewType:   ev.ViewType,
		Timestamp:  now,
	}
	if err := v.Validate(); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	v.IPHash = s.hasher.Hash(ev.RemoteIP)

	if s.geo != nil && ev.RemoteIP != "" {
		country, err := s.geo.CountryCode(ev.RemoteIP)
		if err != nil {
			// Geo enrichment is best-effort; the row is recorded either way.
			s.logger.Debug("geo lookup failed", zap.Error(err))
		} else {
			v.GeoCountry = country
		}
	}

	if s.deduper != nil {
		dup, err := s.deduper.Seen(ctx, dedupKey(v, now))
		if err != nil {
			s.logger.Warn("view dedup check failed, recording anyway", zap.Error(err))
		} else if dup {
			if s.metrics != nil {
				s.metrics.RecordDuplicateView(string(v.ViewType))
			}
			return v, nil
		}
	}

	if err := s.store.SaveView(ctx, v); err != nil {
		return nil, storageErr(err)
	}

	if s.metrics != nil {
		s.metrics.RecordView(string(v.ViewType))
	}
	return v, nil
}

// dedupKey is the natural idempotency key for a view: same session, slot
// and event type within the same hour bucket.
func dedupKey(v *models.View, now time.Time) string {
	return v.SlotID + ":" + v.SessionID + ":" + string(v.ViewType) + ":" + now.Format("2006010215")
}
