package models

import (
	"errors"
	"time"
)

type AdType string

const (
	AdTypeBanner AdType = "banner"
	AdTypeVideo  AdType = "video"
	AdTypeNative AdType = "native"
	AdTypePopup  AdType = "popup"
)

// ValidAdType reports whether t is one of the supported ad types.
func ValidAdType(t AdType) bool {
	switch t {
	case AdTypeBanner, AdTypeVideo, AdTypeNative, AdTypePopup:
		return true
	}
	return false
}

// Campaign is a piece of creative content owned by a provider. AdCode is
// administrator-supplied HTML/JS and is served verbatim: the trust boundary
// is with the admin, not the end user, since many ad tags require script
// execution to render at all.
type Campaign struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	Name       string            `json:"name"`
	AdType     AdType            `json:"ad_type"`
	AdCode     string            `json:"ad_code"`
	Dimensions string            `json:"dimensions,omitempty"` // e.g. "728x90"
	IsActive   bool              `json:"is_active"`
	StartDate  *time.Time        `json:"start_date,omitempty"`
	EndDate    *time.Time        `json:"end_date,omitempty"`
	Targeting  map[string]string `json:"targeting,omitempty"`
	CPMRate    int64             `json:"cpm_rate"` // minor currency units per 1000 impressions
	ClickURL   string            `json:"click_url,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// LiveAt reports whether the campaign may serve at time t. Both schedule
// bounds are inclusive; a nil bound is open-ended.
func (c *Campaign) LiveAt(t time.Time) bool {
	if c == nil || !c.IsActive {
		return false
	}
	if c.StartDate != nil && t.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && t.After(*c.EndDate) {
		return false
	}
	return true
}

// Validate checks required fields and the schedule window.
func (c *Campaign) Validate() error {
	if c == nil {
		return errors.New("campaign is nil")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.ProviderID == "" {
		return errors.New("provider_id is required")
	}
	if !ValidAdType(c.AdType) {
		return errors.New("ad_type must be one of banner, video, native, popup")
	}
	if c.CPMRate < 0 {
		return errors.New("cpm_rate must be >= 0")
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return errors.New("end_date must be >= start_date")
	}
	return nil
}
