// Package maintenance owns the process-wide maintenance flag and the request
// gate that enforces it.
package maintenance

import "time"

// DefaultMessage is shown to blocked clients when no message is configured.
const DefaultMessage = "The system is currently under maintenance"

// Config is the single logical maintenance record. An absent row behaves as
// maintenance disabled.
type Config struct {
	IsEnabled        bool       `json:"is_enabled"`
	Message          string     `json:"message"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	AllowAdminAccess bool       `json:"allow_admin_access"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BlockMessage returns the configured message or the default fallback.
func (c *Config) BlockMessage() string {
	if c == nil || c.Message == "" {
		return DefaultMessage
	}
	return c.Message
}

// WindowActive reports whether now falls inside the configured start/end
// window. Open-ended bounds are treated as always satisfied.
func (c *Config) WindowActive(now time.Time) bool {
	if c == nil {
		return false
	}
	if c.StartTime != nil && now.Before(*c.StartTime) {
		return false
	}
	if c.EndTime != nil && !now.Before(*c.EndTime) {
		return false
	}
	return c.StartTime != nil || c.EndTime != nil
}
