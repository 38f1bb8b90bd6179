package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultReportCacheTTL bounds how long a cached report may be served.
	DefaultReportCacheTTL = 5 * time.Minute

	// recalculationConcurrency caps parallel balance recalculations per call.
	recalculationConcurrency = 8
)
