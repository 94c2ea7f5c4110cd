package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorIDKey   contextKey = "actor_id"
	articleIDKey contextKey = "article_id"
	journalIDKey contextKey = "journal_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithActorID adds the acting user's ID to the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorIDFromContext retrieves the acting user's ID from context.
// Returns empty string if not present.
func ActorIDFromContext(ctx context.Context) string {
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithArticle adds article and journal IDs to the context.
func WithArticle(ctx context.Context, articleID, journalID string) context.Context {
	ctx = context.WithValue(ctx, articleIDKey, articleID)
	ctx = context.WithValue(ctx, journalIDKey, journalID)
	return ctx
}

// ArticleFromContext retrieves article and journal IDs from context.
// Returns empty strings if not present.
func ArticleFromContext(ctx context.Context) (articleID, journalID string) {
	if v := ctx.Value(articleIDKey); v != nil {
		if id, ok := v.(string); ok {
			articleID = id
		}
	}
	if v := ctx.Value(journalIDKey); v != nil {
		if id, ok := v.(string); ok {
			journalID = id
		}
	}
	return articleID, journalID
}

// RequestContext contains all the context data for one request.
type RequestContext struct {
	RequestID string
	ActorID   string
	ArticleID string
	JournalID string
}

// WithRequestContextFull adds all request context to the context.
func WithRequestContextFull(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.ActorID != "" {
		ctx = WithActorID(ctx, rc.ActorID)
	}
	if rc.ArticleID != "" || rc.JournalID != "" {
		ctx = WithArticle(ctx, rc.ArticleID, rc.JournalID)
	}
	return ctx
}

// RequestContextFromContext extracts all request context from the context.
func RequestContextFromContext(ctx context.Context) RequestContext {
	articleID, journalID := ArticleFromContext(ctx)

	return RequestContext{
		RequestID: RequestIDFromContext(ctx),
		ActorID:   ActorIDFromContext(ctx),
		ArticleID: articleID,
		JournalID: journalID,
	}
}
