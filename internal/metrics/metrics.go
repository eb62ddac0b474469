// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by counters.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
	StatusError    = "error"
	StatusDropped  = "dropped"
	StatusSkipped  = "skipped"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Account metrics
	IncRegistration(status string) // success, rejected, error
	IncLogin(status string)        // success, failed, error

	// Authorization decisions by outcome ("allow" or "deny")
	IncAuthzDecision(decision string)

	// Campaign metrics
	IncCampaignCreated()
	IncTargetAdded()

	// Tracking pipeline metrics
	IncTrackingEventPublished(status string) // success, dropped
	IncTrackingEventProcessed(status string) // success, failed, skipped
	ObserveTrackingBatchSize(size int)
	ObserveTrackingBatchDuration(duration time.Duration)
	SetTrackingQueueDepth(depth int64)
}
