package models

const (
	// HealthOK and HealthDegraded are the overall service states reported by the health check.
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

const (
	DefaultSearchRadiusInMeters = 600
	MaxSearchRadiusInMeters     = 5000
)

const (
	MaxSearchQueryLength = 100
)
