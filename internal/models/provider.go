package models

import (
	"errors"
	"time"
)

// Provider represents an ad network account that campaigns are attributed
// to. Credentials is an opaque blob stored encrypted at rest; this service
// never interprets it. Providers are master data: they are deactivated,
// never deleted, so historical views keep resolving.
type Provider struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Network     string            `json:"network"` // adsense, medianet, direct, ...
	IsActive    bool              `json:"is_active"`
	Credentials string            `json:"credentials,omitempty"`
	Settings    map[string]string `json:"settings,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate checks that required fields are present.
func (p *Provider) Validate() error {
	if p == nil {
		return errors.New("provider is nil")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Network == "" {
		return errors.New("network is required")
	}
	return nil
}
