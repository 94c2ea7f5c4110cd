package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the peer review service.
// Metrics are organized by subsystem: submissions, assignments, reviews,
// decisions, documents, and notifications. All counters and histograms are
// registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// SubmissionsTotal counts article submissions that were accepted.
	SubmissionsTotal prometheus.Counter

	// SubmissionsRejected counts submissions rejected at intake, labeled by reason.
	SubmissionsRejected *prometheus.CounterVec

	// SubmissionDuration observes end-to-end intake duration in seconds,
	// including document storage and the merge step.
	SubmissionDuration prometheus.Histogram

	// SubmissionBytes observes the size of stored submission artifacts,
	// labeled by artifact kind (manuscript, cover_letter, supplementary, merged).
	SubmissionBytes *prometheus.HistogramVec

	// ReviewersAssigned counts reviewer assignments committed.
	ReviewersAssigned prometheus.Counter

	// ReviewersRemoved counts reviewer assignments detached.
	ReviewersRemoved prometheus.Counter

	// AssignmentsRejected counts assignment requests refused, labeled by reason
	// (capacity, locked, not_found).
	AssignmentsRejected *prometheus.CounterVec

	// ReviewsRecorded counts submitted review verdicts, labeled by verdict.
	ReviewsRecorded *prometheus.CounterVec

	// ReviewsRejected counts review submissions refused, labeled by reason
	// (already_reviewed, not_assigned, locked, invalid_verdict).
	ReviewsRejected *prometheus.CounterVec

	// StatusChanges counts working status transitions, labeled by the new status.
	StatusChanges *prometheus.CounterVec

	// DecisionsFinalized counts committed editorial decisions, labeled by decision.
	DecisionsFinalized *prometheus.CounterVec

	// DecisionReplays counts finalize calls against an already-finalized
	// article, labeled by outcome (idempotent, conflict).
	DecisionReplays *prometheus.CounterVec

	// DocumentOperations counts document store operations, labeled by op and status.
	DocumentOperations *prometheus.CounterVec

	// DocumentOperationDuration observes document store operation duration in
	// seconds, labeled by op.
	DocumentOperationDuration *prometheus.HistogramVec

	// NotificationsEnqueued counts notifications handed to the dispatcher,
	// labeled by event type.
	NotificationsEnqueued *prometheus.CounterVec

	// NotificationsSent counts notifications delivered, labeled by channel
	// (smtp, kafka, log).
	NotificationsSent *prometheus.CounterVec

	// NotificationsFailed counts notifications that exhausted delivery
	// attempts, labeled by channel.
	NotificationsFailed *prometheus.CounterVec

	// NotificationsDropped counts notifications dropped because the queue was
	// full. The request path never blocks on the dispatcher.
	NotificationsDropped prometheus.Counter

	// NotificationDuration observes delivery duration in seconds, labeled by channel.
	NotificationDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Submissions
		SubmissionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of article submissions accepted",
		}),
		SubmissionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Total number of article submissions rejected at intake by reason",
		}, []string{"reason"}),
		SubmissionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Duration of article intake in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SubmissionBytes: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_bytes",
			Help:      "Size of stored submission artifacts in bytes by kind",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"kind"}),

		// Assignments
		ReviewersAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviewers_assigned_total",
			Help:      "Total number of reviewer assignments committed",
		}),
		ReviewersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviewers_removed_total",
			Help:      "Total number of reviewer assignments detached",
		}),
		AssignmentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_rejected_total",
			Help:      "Total number of reviewer assignment requests refused by reason",
		}, []string{"reason"}),

		// Reviews
		ReviewsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_recorded_total",
			Help:      "Total number of review verdicts recorded by verdict",
		}, []string{"verdict"}),
		ReviewsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_rejected_total",
			Help:      "Total number of review submissions refused by reason",
		}, []string{"reason"}),

		// Decisions
		StatusChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Total number of working status transitions by new status",
		}, []string{"status"}),
		DecisionsFinalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_finalized_total",
			Help:      "Total number of editorial decisions committed by decision",
		}, []string{"decision"}),
		DecisionReplays: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_replays_total",
			Help:      "Total number of finalize calls on already-finalized articles by outcome",
		}, []string{"outcome"}),

		// Documents
		DocumentOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_operations_total",
			Help:      "Total number of document store operations by op and status",
		}, []string{"op", "status"}),
		DocumentOperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_operation_duration_seconds",
			Help:      "Duration of document store operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),

		// Notifications
		NotificationsEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Total number of notifications handed to the dispatcher by event type",
		}, []string{"event_type"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered by channel",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of notifications that exhausted delivery attempts by channel",
		}, []string{"channel"}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications dropped due to a full queue",
		}),
		NotificationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_duration_seconds",
			Help:      "Duration of notification delivery in seconds by channel",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
	}
}

// RecordSubmission records an accepted article submission.
func (m *Metrics) RecordSubmission(durationSeconds float64) {
	m.SubmissionsTotal.Inc()
	m.SubmissionDuration.Observe(durationSeconds)
}

// RecordSubmissionRejected records a submission refused at intake.
func (m *Metrics) RecordSubmissionRejected(reason string) {
	m.SubmissionsRejected.WithLabelValues(reason).Inc()
}

// RecordSubmissionArtifact records the size of a stored submission artifact.
func (m *Metrics) RecordSubmissionArtifact(kind string, sizeBytes int64) {
	m.SubmissionBytes.WithLabelValues(kind).Observe(float64(sizeBytes))
}

// RecordReviewersAssigned records committed reviewer assignments.
func (m *Metrics) RecordReviewersAssigned(count int) {
	m.ReviewersAssigned.Add(float64(count))
}

// RecordReviewerRemoved records a detached reviewer assignment.
func (m *Metrics) RecordReviewerRemoved() {
	m.ReviewersRemoved.Inc()
}

// RecordAssignmentRejected records a refused assignment request.
func (m *Metrics) RecordAssignmentRejected(reason string) {
	m.AssignmentsRejected.WithLabelValues(reason).Inc()
}

// RecordReviewRecorded records a submitted review verdict.
func (m *Metrics) RecordReviewRecorded(verdict string) {
	m.ReviewsRecorded.WithLabelValues(verdict).Inc()
}

// RecordReviewRejected records a refused review submission.
func (m *Metrics) RecordReviewRejected(reason string) {
	m.ReviewsRejected.WithLabelValues(reason).Inc()
}

// RecordStatusChange records a working status transition.
func (m *Metrics) RecordStatusChange(status string) {
	m.StatusChanges.WithLabelValues(status).Inc()
}

// RecordDecisionFinalized records a committed editorial decision.
func (m *Metrics) RecordDecisionFinalized(decision string) {
	m.DecisionsFinalized.WithLabelValues(decision).Inc()
}

// RecordDecisionReplay records a finalize call on an already-finalized article.
func (m *Metrics) RecordDecisionReplay(outcome string) {
	m.DecisionReplays.WithLabelValues(outcome).Inc()
}

// RecordDocumentOperation records a document store operation.
func (m *Metrics) RecordDocumentOperation(op, status string, durationSeconds float64) {
	m.DocumentOperations.WithLabelValues(op, status).Inc()
	m.DocumentOperationDuration.WithLabelValues(op).Observe(durationSeconds)
}

// RecordNotificationEnqueued records a notification handed to the dispatcher.
func (m *Metrics) RecordNotificationEnqueued(eventType string) {
	m.NotificationsEnqueued.WithLabelValues(eventType).Inc()
}

// RecordNotificationSent records a delivered notification.
func (m *Metrics) RecordNotificationSent(channel string, durationSeconds float64) {
	m.NotificationsSent.WithLabelValues(channel).Inc()
	m.NotificationDuration.WithLabelValues(channel).Observe(durationSeconds)
}

// RecordNotificationFailed records a notification that exhausted delivery attempts.
func (m *Metrics) RecordNotificationFailed(channel string) {
	m.NotificationsFailed.WithLabelValues(channel).Inc()
}

// RecordNotificationDropped records a notification dropped due to a full queue.
func (m *Metrics) RecordNotificationDropped() {
	m.NotificationsDropped.Inc()
}
