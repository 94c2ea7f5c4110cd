package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	// Use unique namespace to avoid conflicts with other tests
	m := NewMetrics("test_peer_review_new")

	assert.NotNil(t, m.SubmissionsTotal)
	assert.NotNil(t, m.SubmissionsRejected)
	assert.NotNil(t, m.SubmissionDuration)
	assert.NotNil(t, m.SubmissionBytes)
	assert.NotNil(t, m.ReviewersAssigned)
	assert.NotNil(t, m.ReviewersRemoved)
	assert.NotNil(t, m.AssignmentsRejected)
	assert.NotNil(t, m.ReviewsRecorded)
	assert.NotNil(t, m.ReviewsRejected)
	assert.NotNil(t, m.StatusChanges)
	assert.NotNil(t, m.DecisionsFinalized)
	assert.NotNil(t, m.DecisionReplays)
	assert.NotNil(t, m.DocumentOperations)
	assert.NotNil(t, m.NotificationsEnqueued)
	assert.NotNil(t, m.NotificationsSent)
	assert.NotNil(t, m.NotificationsFailed)
	assert.NotNil(t, m.NotificationsDropped)
}

func TestRecordSubmission(t *testing.T) {
	m := NewMetrics("test_submission")

	initial := testutil.ToFloat64(m.SubmissionsTotal)
	m.RecordSubmission(1.2)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.SubmissionsTotal))

	// Check histogram
	histCount, err := getHistogramSampleCount(m.SubmissionDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordSubmissionRejected(t *testing.T) {
	m := NewMetrics("test_submission_rejected")

	m.RecordSubmissionRejected("oversize_supplementary")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsRejected.WithLabelValues("oversize_supplementary")))
}

func TestRecordSubmissionArtifact(t *testing.T) {
	m := NewMetrics("test_submission_artifact")

	m.RecordSubmissionArtifact("manuscript", 1<<20)
	m.RecordSubmissionArtifact("manuscript", 2<<20)

	histCount, err := getHistogramSampleCount(m.SubmissionBytes.WithLabelValues("manuscript").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), histCount)
}

func TestRecordReviewersAssigned(t *testing.T) {
	m := NewMetrics("test_reviewers_assigned")

	initial := testutil.ToFloat64(m.ReviewersAssigned)
	m.RecordReviewersAssigned(3)
	assert.Equal(t, initial+3, testutil.ToFloat64(m.ReviewersAssigned))
}

func TestRecordReviewerRemoved(t *testing.T) {
	m := NewMetrics("test_reviewer_removed")

	initial := testutil.ToFloat64(m.ReviewersRemoved)
	m.RecordReviewerRemoved()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.ReviewersRemoved))
}

func TestRecordAssignmentRejected(t *testing.T) {
	m := NewMetrics("test_assignment_rejected")

	m.RecordAssignmentRejected("capacity")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssignmentsRejected.WithLabelValues("capacity")))
}

func TestRecordReviewRecorded(t *testing.T) {
	m := NewMetrics("test_review_recorded")

	m.RecordReviewRecorded("strongly_accept")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReviewsRecorded.WithLabelValues("strongly_accept")))
}

func TestRecordReviewRejected(t *testing.T) {
	m := NewMetrics("test_review_rejected")

	m.RecordReviewRejected("already_reviewed")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReviewsRejected.WithLabelValues("already_reviewed")))
}

func TestRecordStatusChange(t *testing.T) {
	m := NewMetrics("test_status_change")

	m.RecordStatusChange("under_review")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusChanges.WithLabelValues("under_review")))
}

func TestRecordDecisionFinalized(t *testing.T) {
	m := NewMetrics("test_decision_finalized")

	m.RecordDecisionFinalized("accepted")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsFinalized.WithLabelValues("accepted")))
}

func TestRecordDecisionReplay(t *testing.T) {
	m := NewMetrics("test_decision_replay")

	m.RecordDecisionReplay("already_finalized")
	m.RecordDecisionReplay("conflict")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionReplays.WithLabelValues("already_finalized")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionReplays.WithLabelValues("conflict")))
}

func TestRecordDocumentOperation(t *testing.T) {
	m := NewMetrics("test_document_operation")

	m.RecordDocumentOperation("merge", "success", 0.25)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentOperations.WithLabelValues("merge", "success")))
}

func TestRecordNotificationEnqueued(t *testing.T) {
	m := NewMetrics("test_notification_enqueued")

	m.RecordNotificationEnqueued("article.reviewers_assigned")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsEnqueued.WithLabelValues("article.reviewers_assigned")))
}

func TestRecordNotificationSent(t *testing.T) {
	m := NewMetrics("test_notification_sent")

	m.RecordNotificationSent("email", 0.8)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email")))
}

func TestRecordNotificationFailed(t *testing.T) {
	m := NewMetrics("test_notification_failed")

	m.RecordNotificationFailed("kafka")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("kafka")))
}

func TestRecordNotificationDropped(t *testing.T) {
	m := NewMetrics("test_notification_dropped")

	initial := testutil.ToFloat64(m.NotificationsDropped)
	m.RecordNotificationDropped()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.NotificationsDropped))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
