// Package metadata provides access to the GCE instance metadata service.
// It wraps cloud.google.com/go/compute/metadata behind a small interface so
// the scope and project checks can be exercised against a mock off-instance.
package metadata

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	gce "cloud.google.com/go/compute/metadata"
)

var _ Client = (*GCEClient)(nil)

// Client defines the metadata surface the validator consumes.
type Client interface {
	// OnGCE reports whether the process is running on a GCE instance.
	OnGCE() bool
	// ProjectID returns the project id of the current instance.
	ProjectID(ctx context.Context) (string, error)
	// ServiceAccounts returns the service account names attached to the
	// instance, one per line in the metadata response.
	ServiceAccounts(ctx context.Context) ([]string, error)
	// Scopes returns the raw granted-scopes response for an account.
	Scopes(ctx context.Context, account string) (string, error)
}

// GCEClient talks to the live instance metadata endpoint.
type GCEClient struct {
	c *gce.Client
}

// New creates a GCEClient whose requests are bounded by timeout.
func New(timeout time.Duration) *GCEClient {
	return &GCEClient{
		c: gce.NewClient(&http.Client{Timeout: timeout}),
	}
}

// OnGCE reports whether the process is running on a GCE instance.
func (g *GCEClient) OnGCE() bool {
	return gce.OnGCE()
}

// ProjectID returns the project id of the current instance.
func (g *GCEClient) ProjectID(ctx context.Context) (string, error) {
	id, err := g.c.ProjectIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching project id: %w", err)
	}
	return id, nil
}

// ServiceAccounts lists the instance's service accounts. Each entry has any
// trailing '/' stripped and is reduced to its basename, matching the form
// the scopes endpoint expects.
func (g *GCEClient) ServiceAccounts(ctx context.Context) ([]string, error) {
	raw, err := g.c.GetWithContext(ctx, "instance/service-accounts/")
	if err != nil {
		return nil, fmt.Errorf("listing service accounts: %w", err)
	}

	var accounts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "/"))
		if line == "" {
			continue
		}
		accounts = append(accounts, path.Base(line))
	}
	return accounts, nil
}

// Scopes returns the raw granted-scopes response for account.
func (g *GCEClient) Scopes(ctx context.Context, account string) (string, error) {
	raw, err := g.c.GetWithContext(ctx,
		path.Join("instance/service-accounts", account, "scopes"))
	if err != nil {
		return "", fmt.Errorf("fetching scopes for %q: %w", account, err)
	}
	return raw, nil
}
