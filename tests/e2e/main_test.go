//go:build e2e

// E2E tests require the full peer review stack running:
//  1. Start postgres and run migrations (see cmd/migrate).
//  2. Start the server:
//     PEERREVIEW_AUTH_SECRET=e2e-secret go run ./cmd/server &
//  3. Run: PEERREVIEW_AUTH_SECRET=e2e-secret go test -tags e2e -v ./tests/e2e/...
package e2e

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/helixir/peer-review-service/internal/identity"
)

var (
	apiBaseURL string
	authSecret string
	authIssuer = "peer-review-service"
)

func TestMain(m *testing.M) {
	apiBaseURL = os.Getenv("PEERREVIEW_API_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}
	authSecret = os.Getenv("PEERREVIEW_AUTH_SECRET")
	if authSecret == "" {
		fmt.Fprintln(os.Stderr, "PEERREVIEW_AUTH_SECRET must match the running server")
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// tokenFor mints a bearer token for the given actor, signed with the same
// secret the server was started with.
func tokenFor(t *testing.T, actor identity.Actor) string {
	t.Helper()
	token, err := identity.IssueToken(authSecret, authIssuer, actor, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}
