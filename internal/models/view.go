package models

import (
	"errors"
	"time"
)

type ViewType string

const (
	ViewImpression ViewType = "impression"
	ViewClick      ViewType = "click"
)

// ValidViewType reports whether t is a recordable event type.
func ValidViewType(t ViewType) bool {
	return t == ViewImpression || t == ViewClick
}

// View is one impression or click event. Rows are write-once: the recorder
// assigns ID and Timestamp and nothing mutates them afterwards. CampaignID
// is empty when the slot rendered without an ad. IPHash is a salted hash of
// the connecting address computed server-side; the raw IP is never stored.
type View struct {
	ID         string    `json:"id"`
	SlotID     string    `json:"slot_id"`
	CampaignID string    `json:"campaign_id,omitempty"`
	SessionID  string    `json:"session_id"`
	IPHash     string    `json:"ip_hash"`
	UserAgent  string    `json:"user_agent,omitempty"`
	GeoCountry string    `json:"geo_country,omitempty"`
	Page       string    `json:"page"`
	ViewType   ViewType  `json:"view_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validate checks the fields the caller must supply. ID, IPHash and
// Timestamp are server-assigned and not validated here.
func (v *View) Validate() error {
	if v == nil {
		return errors.New("view is nil")
	}
	if v.SlotID == "" {
		return errors.New("slot_id is required")
	}
	if v.SessionID == "" {
		return errors.New("session_id is required")
	}
	if v.Page == "" {
		return errors.New("page is required")
	}
	if !ValidViewType(v.ViewType) {
		return errors.New("view_type must be impression or click")
	}
	return nil
}
