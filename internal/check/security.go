package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/spincheck/spincheck/pkg/report"
)

// CheckUserAccessOnly verifies that path, if it exists, grants no permission
// bits to group or other. A nonexistent path passes trivially.
func (v *Validator) CheckUserAccessOnly(path string) []report.Finding {
	info, err := v.fs.Stat(path)
	if err != nil {
		return nil // nothing to check
	}

	perm := info.Mode().Perm()
	if perm&0o077 == 0 {
		return nil
	}
	return []report.Finding{{
		Kind:   report.InsecurePermissions,
		Field:  path,
		Detail: fmt.Sprintf("should not have non-owner access, mode is %03o", uint32(perm)),
	}}
}

// CheckSecurity applies the owner-only rule to the sensitive files of the
// deployment: the JSON credential file (when configured) and the deployment
// configuration file itself.
func (v *Validator) CheckSecurity() []report.Finding {
	var out []report.Finding
	if credPath := v.bindings.GetOrEmpty("GOOGLE_JSON_CREDENTIAL_PATH"); credPath != "" {
		out = append(out, v.CheckUserAccessOnly(credPath)...)
	}
	out = append(out, v.CheckUserAccessOnly(v.configPath)...)
	return out
}

// CheckReachability resolves the host part of each configured address field.
// It is optional and never affects the syntax checks; a host that fails to
// resolve yields its own finding.
func (v *Validator) CheckReachability(ctx context.Context) []report.Finding {
	if v.resolver == nil {
		return nil
	}

	var out []report.Finding
	for _, name := range []string{"DOCKER_ADDRESS", "JENKINS_ADDRESS"} {
		addr := v.bindings.GetOrEmpty(name)
		if addr == "" {
			continue
		}

		host := addr
		if i := strings.IndexAny(host, ":/"); i >= 0 {
			host = host[:i]
		}

		if _, err := v.resolver.LookupHost(ctx, host); err != nil {
			out = append(out, report.Finding{
				Kind:   report.UnresolvableAddress,
				Field:  name,
				Detail: fmt.Sprintf("host %q did not resolve", host),
			})
		}
	}
	return out
}
