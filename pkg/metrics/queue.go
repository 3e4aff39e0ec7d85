package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch result labels.
const (
	ResultPosted  = "posted"
	ResultRetry   = "retry"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// QueueMetrics tracks admission and dispatch outcomes.
type QueueMetrics struct {
	dispatches *prometheus.CounterVec
	duplicates prometheus.Counter
	enqueued   *prometheus.CounterVec
}

// NewQueueMetrics registers queue metrics on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posting_queue_dispatch_total",
		Help: "Dispatch attempts by platform and result.",
	}, []string{"platform", "result"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posting_queue_duplicates_prevented_total",
		Help: "Submissions refused at admission because the content was already queued.",
	})
	enqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posting_queue_enqueued_total",
		Help: "Items accepted into the queue by platform.",
	}, []string{"platform"})
	reg.MustRegister(dispatches, duplicates, enqueued)
	return &QueueMetrics{
		dispatches: dispatches,
		duplicates: duplicates,
		enqueued:   enqueued,
	}
}

// IncDispatch counts one dispatch attempt outcome.
func (q *QueueMetrics) IncDispatch(platform, result string) {
	if q == nil || q.dispatches == nil {
		return
	}
	q.dispatches.WithLabelValues(normalizeLabel(platform), normalizeLabel(result)).Inc()
}

// IncDuplicatePrevented counts one refused duplicate submission.
func (q *QueueMetrics) IncDuplicatePrevented() {
	if q == nil || q.duplicates == nil {
		return
	}
	q.duplicates.Inc()
}

// IncEnqueued counts one accepted submission.
func (q *QueueMetrics) IncEnqueued(platform string) {
	if q == nil || q.enqueued == nil {
		return
	}
	q.enqueued.WithLabelValues(normalizeLabel(platform)).Inc()
}
