package scanner

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "job_scanner"

// Metrics counts terminal activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	scans           *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	submitDuration  prometheus.Histogram
	locationRefresh *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scans_total",
			Help:      "Operator entries by validation result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejections_total",
			Help:      "Rejected job numbers by rule.",
		}, []string{"reason"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Scan event inserts by outcome and store error kind.",
		}, []string{"outcome", "kind"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "submission_duration_seconds",
			Help:      "Time spent inserting one scan event.",
			Buckets:   prometheus.DefBuckets,
		}),
		locationRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "location_refresh_total",
			Help:      "Location resolutions by resulting status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.scans, m.rejections, m.submissions, m.submitDuration, m.locationRefresh)
	}
	return m
}

func (m *Metrics) ObserveScan(err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.scans.WithLabelValues("accepted").Inc()
		return
	}
	m.scans.WithLabelValues("rejected").Inc()
	var rej *Rejection
	if errors.As(err, &rej) {
		m.rejections.WithLabelValues(rej.Reason.String()).Inc()
	}
}

func (m *Metrics) ObserveSubmission(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.submitDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.submissions.WithLabelValues("ok", "").Inc()
		return
	}
	kind := StoreErrorUnknown
	var se *StoreError
	if errors.As(err, &se) {
		kind = se.Kind
	}
	m.submissions.WithLabelValues("error", kind).Inc()
}

func (m *Metrics) ObserveResolution(status LocationStatus) {
	if m == nil {
		return
	}
	m.locationRefresh.WithLabelValues(status.String()).Inc()
}
