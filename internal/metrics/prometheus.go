package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registrations     *prometheus.CounterVec
	logins            *prometheus.CounterVec
	authz             *prometheus.CounterVec
	campaignsCreated  prometheus.Counter
	targetsAdded      prometheus.Counter
	trackingPublished *prometheus.CounterVec
	trackingProcessed *prometheus.CounterVec
	batchSize         prometheus.Histogram
	batchDuration     prometheus.Histogram
	queueDepth        prometheus.Gauge
}

// NewPrometheus registers the application collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	const ns = "phishdrill"
	p := &PrometheusRecorder{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "registrations_total", Help: "Account registrations by outcome.",
		}, []string{"status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "logins_total", Help: "Login attempts by outcome.",
		}, []string{"status"}),
		authz: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "authz_decisions_total", Help: "Authorization decisions by outcome.",
		}, []string{"decision"}),
		campaignsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "campaigns_created_total", Help: "Campaigns created.",
		}),
		targetsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "campaign_targets_added_total", Help: "Campaign targets added.",
		}),
		trackingPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tracking_events_published_total", Help: "Tracking events published to the stream.",
		}, []string{"status"}),
		trackingProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "tracking_events_processed_total", Help: "Tracking events consumed by the worker.",
		}, []string{"status"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "tracking_batch_size", Help: "Events per worker batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "tracking_batch_duration_seconds", Help: "Worker batch processing time.",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "tracking_queue_depth", Help: "Pending entries in the tracking stream.",
		}),
	}

	reg.MustRegister(
		p.registrations,
		p.logins,
		p.authz,
		p.campaignsCreated,
		p.targetsAdded,
		p.trackingPublished,
		p.trackingProcessed,
		p.batchSize,
		p.batchDuration,
		p.queueDepth,
	)
	return p
}

func (p *PrometheusRecorder) IncRegistration(status string) {
	p.registrations.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncLogin(status string) {
	p.logins.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncAuthzDecision(decision string) {
	p.authz.WithLabelValues(decision).Inc()
}

func (p *PrometheusRecorder) IncCampaignCreated() { p.campaignsCreated.Inc() }

func (p *PrometheusRecorder) IncTargetAdded() { p.targetsAdded.Inc() }

func (p *PrometheusRecorder) IncTrackingEventPublished(status string) {
	p.trackingPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncTrackingEventProcessed(status string) {
	p.trackingProcessed.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveTrackingBatchSize(size int) {
	p.batchSize.Observe(float64(size))
}

func (p *PrometheusRecorder) ObserveTrackingBatchDuration(d time.Duration) {
	p.batchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetTrackingQueueDepth(depth int64) {
	p.queueDepth.Set(float64(depth))
}
