package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "training"

var (
	AttendanceMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_marked_total",
		Help:      "Attendance marks written, by status.",
	}, []string{"status"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollments_total",
		Help:      "Enrollment attempts, by mode and outcome.",
	}, []string{"mode", "outcome"})

	CertificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "certificates_issued_total",
		Help:      "Certificates created.",
	})

	StatsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stats_cache_lookups_total",
		Help:      "Formation stats cache lookups, by result.",
	}, []string{"result"})

	VoiceIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_intents_total",
		Help:      "Parsed voice commands, by resulting action.",
	}, []string{"action"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)
