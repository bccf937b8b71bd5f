package check

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spincheck/spincheck/internal/log"
	"github.com/spincheck/spincheck/pkg/report"
)

// requiredScopes are the cloud-API grants at least one of the instance's
// service accounts must carry.
var requiredScopes = []string{
	"https://www.googleapis.com/auth/compute",
}

// CheckGCEScopes verifies that every required scope is granted to some
// service account attached to the instance. Off-instance this is a no-op
// pass. Fetch failures on accounts or scopes are treated as "no data", not
// as errors.
func (v *Validator) CheckGCEScopes(ctx context.Context) []report.Finding {
	if !v.meta.OnGCE() {
		return nil
	}

	accounts, err := v.meta.ServiceAccounts(ctx)
	if err != nil {
		log.Warnf("check: listing service accounts: %v", err)
		accounts = nil
	}

	var (
		mu    sync.Mutex
		found = make(map[string]bool)
	)

	grp, ctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		account := account
		grp.Go(func() error {
			granted, err := v.meta.Scopes(ctx, account)
			if err != nil {
				log.Debugf("check: scopes for %q: %v", account, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, scope := range requiredScopes {
				if strings.Contains(granted, scope) {
					found[scope] = true
				}
			}
			return nil
		})
	}
	_ = grp.Wait() // goroutines only ever return nil

	var out []report.Finding
	for _, scope := range requiredScopes {
		if !found[scope] {
			out = append(out, report.Finding{
				Kind:   report.MissingScope,
				Detail: fmt.Sprintf("required scope %q not granted to any service account", scope),
			})
		}
	}
	return out
}

// CheckGCEProvider validates the Google provider fields against the
// instance's own identity. The project-id fetch is the one external
// dependency whose failure aborts the run; everything else accumulates.
func (v *Validator) CheckGCEProvider(ctx context.Context) ([]report.Finding, error) {
	projectID, err := v.meta.ProjectID(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot determine current project: %w", err)
	}

	var out []report.Finding

	if managed := v.bindings.GetOrEmpty("GOOGLE_MANAGED_PROJECT_ID"); managed != "" {
		if !gceNameRE.MatchString(managed) {
			out = append(out, report.Finding{
				Kind:   report.MalformedResourceName,
				Field:  "GOOGLE_MANAGED_PROJECT_ID",
				Detail: fmt.Sprintf("%q does not look like %s", managed, gceNamePattern),
			})
		}
		if managed != projectID {
			// Managing another project needs explicit credentials.
			credPath := v.bindings.GetOrEmpty("GOOGLE_JSON_CREDENTIAL_PATH")
			switch {
			case credPath == "":
				out = append(out, report.Finding{
					Kind:  report.MissingCredentialFile,
					Field: "GOOGLE_JSON_CREDENTIAL_PATH",
					Detail: fmt.Sprintf("is required because GOOGLE_MANAGED_PROJECT_ID %q is not this project %q",
						managed, projectID),
				})
			default:
				if _, err := v.fs.Stat(credPath); err != nil {
					out = append(out, report.Finding{
						Kind:   report.NonexistentCredentialFile,
						Field:  "GOOGLE_JSON_CREDENTIAL_PATH",
						Detail: fmt.Sprintf("%q does not exist", credPath),
					})
				}
			}
		}
	}

	if account := v.bindings.GetOrEmpty("GOOGLE_ACCOUNT_NAME"); !accountNameRE.MatchString(account) {
		out = append(out, report.Finding{
			Kind:   report.MalformedResourceName,
			Field:  "GOOGLE_ACCOUNT_NAME",
			Detail: fmt.Sprintf("%q does not look like %s", account, accountNamePattern),
		})
	}

	return out, nil
}
