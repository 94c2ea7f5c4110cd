// Package observability provides logging and metrics support for the peer
// review service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for submissions, assignments, reviews, decisions,
//     and notifications
//   - Context helpers for propagating request data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("article_id", articleID).Msg("article submitted")
//
// Add article context to logger:
//
//	logger = observability.WithArticleContext(logger, articleID, journalID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("peer_review")
//
// Record metrics:
//
//	metrics.RecordSubmission(elapsed.Seconds())
//	metrics.RecordReviewRecorded("strongly_accept")
//	metrics.RecordNotificationSent("smtp", elapsed.Seconds())
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithArticle(ctx, articleID, journalID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	articleID, journalID := observability.ArticleFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - article_id: Article identifier
//   - journal_id: Journal identifier
//   - reviewer_email: Assigned reviewer's email
//   - actor_id: Authenticated user identifier
//   - event_type: Lifecycle event type
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
