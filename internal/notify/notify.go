// Package notify delivers lifecycle notifications for committed article
// transitions. Delivery is asynchronous and best-effort: the dispatcher
// accepts events without blocking the committing transaction, and delivery
// failures surface through logs and metrics, never to the caller.
package notify

import (
	"context"

	"github.com/helixir/peer-review-service/internal/domain"
)

// Channel delivers a lifecycle event over one transport.
type Channel interface {
	// Name identifies the channel in logs and metrics (e.g. "email", "kafka").
	Name() string

	// Send delivers the event. Implementations must honor context
	// cancellation and return an error on delivery failure.
	Send(ctx context.Context, event *domain.LifecycleEvent) error
}
