package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration(string)                    {}
func (n *NoopRecorder) IncLogin(string)                           {}
func (n *NoopRecorder) IncAuthzDecision(string)                   {}
func (n *NoopRecorder) IncCampaignCreated()                       {}
func (n *NoopRecorder) IncTargetAdded()                           {}
func (n *NoopRecorder) IncTrackingEventPublished(string)          {}
func (n *NoopRecorder) IncTrackingEventProcessed(string)          {}
func (n *NoopRecorder) ObserveTrackingBatchSize(int)              {}
func (n *NoopRecorder) ObserveTrackingBatchDuration(time.Duration) {}
func (n *NoopRecorder) SetTrackingQueueDepth(int64)               {}
