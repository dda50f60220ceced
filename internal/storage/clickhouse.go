package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/adserver/internal/models"
)

// ClickHouseViewStore implements ViewStore on top of a ClickHouse table.
// Raw views are a high-volume append-only stream, which is what ClickHouse
// is for; the postgres store remains the default for small deployments.
type ClickHouseViewStore struct {
	conn driver.Conn
}

func NewClickHouseViewStore(conn driver.Conn) *ClickHouseViewStore {
	return &ClickHouseViewStore{conn: conn}
}

func (s *ClickHouseViewStore) SaveView(ctx context.Context, v *models.View) error {
	if v == nil {
		return nil
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO views (id, slot_id, campaign_id, session_id, ip_hash, user_agent, geo_country, page, view_type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.SlotID, v.CampaignID, v.SessionID, v.IPHash, v.UserAgent, v.GeoCountry, v.Page, string(v.ViewType), v.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert view: %w", err)
	}
	return nil
}

func (s *ClickHouseViewStore) ListByDate(ctx context.Context, date time.Time, page string) ([]*models.View, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	query := `
		SELECT id, slot_id, campaign_id, session_id, ip_hash, user_agent, geo_country, page, view_type, timestamp
		FROM views WHERE timestamp >= ? AND timestamp < ?`
	args := []interface{}{day, next}
	if page != "" {
		query += ` AND page = ?`
		args = append(args, page)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	var views []*models.View
	for rows.Next() {
		var v models.View
		var viewType string
		if err := rows.Scan(&v.ID, &v.SlotID, &v.CampaignID, &v.SessionID, &v.IPHash,
			&v.UserAgent, &v.GeoCountry, &v.Page, &viewType, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", err)
		}
		v.ViewType = models.ViewType(viewType)
		views = append(views, &v)
	}
	return views, rows.Err()
}
