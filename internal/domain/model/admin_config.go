package model

import "time"

const (
	DefaultLogLevel            = "info"
	DefaultHealthCheckInterval = 5
)

// AdminConfig is the singleton runtime configuration edited from the dashboard.
type AdminConfig struct {
	AdminID             string
	LogLevel            string
	HealthCheckInterval int // minutes
	DetailedLogging     bool
	LastStarted         time.Time
}

// ConfigPatch is a partial AdminConfig for upserts. Nil fields keep their current value.
// An empty AdminID is treated as nil so a configured admin is never silently cleared.
type ConfigPatch struct {
	AdminID             *string
	LogLevel            *string
	HealthCheckInterval *int
	DetailedLogging     *bool
	LastStarted         *time.Time
}

// DefaultAdminConfig returns the values used when a field has never been set.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		LogLevel:            DefaultLogLevel,
		HealthCheckInterval: DefaultHealthCheckInterval,
		DetailedLogging:     true,
	}
}

// Apply merges the patch into c and returns the result.
func (p ConfigPatch) Apply(c AdminConfig) AdminConfig {
	if p.AdminID != nil && *p.AdminID != "" {
		c.AdminID = *p.AdminID
	}
	if p.LogLevel != nil && *p.LogLevel != "" {
		c.LogLevel = *p.LogLevel
	}
	if p.HealthCheckInterval != nil && *p.HealthCheckInterval > 0 {
		c.HealthCheckInterval = *p.HealthCheckInterval
	}
	if p.DetailedLogging != nil {
		c.DetailedLogging = *p.DetailedLogging
	}
	if p.LastStarted != nil {
		c.LastStarted = *p.LastStarted
	}
	return c
}

func StringPtr(s string) *string { return &s }
func IntPtr(i int) *int          { return &i }
func BoolPtr(b bool) *bool       { return &b }
