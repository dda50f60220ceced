package models

import (
	"errors"
	"time"
)

// Slot is a named ad placement identified by a (position, page) pair.
// AdProvider/AdCode form the legacy direct-serving path: when no assignment
// resolves for an active slot, a non-empty AdCode is still served.
type Slot struct {
	ID         string            `json:"id"`
	Position   string            `json:"position"`
	Page       string            `json:"page"`
	IsActive   bool              `json:"is_active"`
	AdProvider string            `json:"ad_provider,omitempty"`
	AdCode     string            `json:"ad_code,omitempty"`
	Settings   map[string]string `json:"settings,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Validate checks that the placement identity is present.
func (s *Slot) Validate() error {
	if s == nil {
		return errors.New("slot is nil")
	}
	if s.Position == "" {
		return errors.New("position is required")
	}
	if s.Page == "" {
		return errors.New("page is required")
	}
	return nil
}

// SlotAssignment links a slot to a campaign with a serving priority.
// Among active assignments whose campaign is live, the resolver picks the
// numerically highest priority; ties break by most recent AssignedAt, then
// by ID so the order is total and stable.
type SlotAssignment struct {
	ID         string    `json:"id"`
	SlotID     string    `json:"slot_id"`
	CampaignID string    `json:"campaign_id"`
	Priority   int32     `json:"priority"`
	IsActive   bool      `json:"is_active"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Validate checks that both ends of the link are present.
func (a *SlotAssignment) Validate() error {
	if a == nil {
		return errors.New("assignment is nil")
	}
	if a.SlotID == "" {
		return errors.New("slot_id is required")
	}
	if a.CampaignID == "" {
		return errors.New("campaign_id is required")
	}
	return nil
}
