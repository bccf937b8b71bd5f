// Package check implements the deployment configuration validator. Each
// check inspects the loaded bindings independently and returns the findings
// it produced; Validate runs the fixed sequence and aggregates everything
// into a single report, so one bad field never hides another.
package check

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spincheck/spincheck/internal/bindings"
	"github.com/spincheck/spincheck/internal/filesys"
	"github.com/spincheck/spincheck/internal/metadata"
	"github.com/spincheck/spincheck/internal/netcheck"
	"github.com/spincheck/spincheck/pkg/report"
)

const (
	// addressPattern accepts <host>[:<port>][/path] with lowercase hosts.
	addressPattern = `^[-_.a-z0-9]+(:[0-9]+)?(/[-_a-zA-Z0-9+%/]+)?$`
	// awsKeyPattern is deliberately generous; secret keys may contain
	// slashes and there is no authoritative format reference.
	awsKeyPattern = `^[/a-zA-Z0-9]+$`
	// gceNamePattern follows the GCE resource naming rules. The body could
	// be tightened below 61 because name decoration on created components
	// pushes against the GCE limit.
	gceNamePattern     = `^[a-z]([-a-z0-9]{0,61}[a-z0-9])?$`
	accountNamePattern = `^[-_a-zA-Z0-9]+$`
)

var (
	addressRE     = regexp.MustCompile(addressPattern)
	awsKeyRE      = regexp.MustCompile(awsKeyPattern)
	gceNameRE     = regexp.MustCompile(gceNamePattern)
	accountNameRE = regexp.MustCompile(accountNamePattern)
)

// Validator runs the fixed sequence of domain checks against one loaded
// bindings mapping. Each Validate call produces a fresh report; instances
// hold no mutable run state.
type Validator struct {
	bindings   bindings.Bindings
	configPath string
	fs         filesys.FS
	meta       metadata.Client
	resolver   netcheck.Clienter
}

// Opt is a function option for configuring the Validator.
type Opt func(v *Validator)

// WithFS returns an option to inject a file system implementation.
// Defaults to the local disk.
func WithFS(fs filesys.FS) Opt {
	return func(v *Validator) {
		v.fs = fs
	}
}

// WithResolver returns an option to enable the reachability check using the
// given resolver. Without it, address fields are validated by syntax only.
func WithResolver(r netcheck.Clienter) Opt {
	return func(v *Validator) {
		v.resolver = r
	}
}

// New creates a Validator for the given bindings. configPath is the
// deployment configuration file the bindings were loaded from; it is named
// in the report and permission-checked by CheckSecurity.
func New(b bindings.Bindings, configPath string, meta metadata.Client, opts ...Opt) *Validator {
	v := &Validator{
		bindings:   b,
		configPath: configPath,
		fs:         filesys.OS(),
		meta:       meta,
	}

	for _, o := range opts {
		o(v)
	}

	return v
}

// Validate runs all checks in order and returns the aggregated report.
// Checks never short-circuit each other; the only non-nil error is the
// unreachable-project-id fetch, which aborts the run entirely.
func (v *Validator) Validate(ctx context.Context) (*report.Report, error) {
	rep := report.New(v.configPath)

	rep.Add(v.CheckGCEScopes(ctx)...)

	gce, err := v.CheckGCEProvider(ctx)
	if err != nil {
		return nil, err
	}
	rep.Add(gce...)

	rep.Add(v.CheckAWSProvider()...)
	rep.Add(v.CheckDocker()...)
	rep.Add(v.CheckJenkins()...)
	rep.Add(v.CheckSecurity()...)

	if v.resolver != nil {
		rep.Add(v.CheckReachability(ctx)...)
	}

	return rep, nil
}

// CheckTrueFalse verifies that name is bound to exactly "true" or "false".
func (v *Validator) CheckTrueFalse(name string) []report.Finding {
	value, ok := v.bindings.Get(name)
	if !ok {
		return []report.Finding{{Kind: report.MissingField, Field: name}}
	}
	if value == "true" || value == "false" {
		return nil
	}
	return []report.Finding{{
		Kind:   report.InvalidValue,
		Field:  name,
		Detail: fmt.Sprintf("is %q, must be \"true\" or \"false\"", value),
	}}
}

// CheckHostPort verifies that name is bound to a <host>[:<port>][/path]
// address. An empty value passes unless required is set.
func (v *Validator) CheckHostPort(name string, required bool) []report.Finding {
	value, ok := v.bindings.Get(name)
	if !ok {
		return []report.Finding{{Kind: report.MissingField, Field: name}}
	}

	if value == "" {
		if !required {
			return nil
		}
		return []report.Finding{{Kind: report.MissingAddress, Field: name}}
	}

	if addressRE.MatchString(value) {
		return nil
	}
	return []report.Finding{{
		Kind:   report.MalformedAddress,
		Field:  name,
		Detail: fmt.Sprintf("%q is not in <host>[:<port>][/path] form", value),
	}}
}

// CheckAWSProvider validates the AWS credential fields. If AWS_ENABLED is
// missing or malformed that is the only reported issue; if AWS is simply not
// enabled there is nothing to check. Key values are never echoed in findings.
func (v *Validator) CheckAWSProvider() []report.Finding {
	if out := v.CheckTrueFalse("AWS_ENABLED"); len(out) > 0 {
		return out
	}
	if v.bindings.GetOrEmpty("AWS_ENABLED") != "true" {
		return nil
	}

	var out []report.Finding
	for _, name := range []string{"AWS_ACCESS_KEY", "AWS_SECRET_KEY"} {
		if !awsKeyRE.MatchString(v.bindings.GetOrEmpty(name)) {
			out = append(out, report.Finding{
				Kind:   report.MalformedCredential,
				Field:  name,
				Detail: "does not look like " + awsKeyPattern,
			})
		}
	}
	return out
}

// CheckDocker validates the Docker address fields and the enabled flag.
// An enabled Docker deployment must name a target repository.
func (v *Validator) CheckDocker() []report.Finding {
	out := v.CheckHostPort("DOCKER_ADDRESS", false)
	out = append(out, v.CheckHostPort("DOCKER_TARGET_REPOSITORY", false)...)

	flag := v.CheckTrueFalse("DOCKER_ENABLED")
	out = append(out, flag...)
	if len(flag) == 0 &&
		v.bindings.GetOrEmpty("DOCKER_ENABLED") == "true" &&
		v.bindings.GetOrEmpty("DOCKER_TARGET_REPOSITORY") == "" {
		out = append(out, report.Finding{
			Kind:   report.MissingField,
			Field:  "DOCKER_TARGET_REPOSITORY",
			Detail: "is required because DOCKER_ENABLED is true",
		})
	}
	return out
}

// CheckJenkins validates the Jenkins address and its companion username.
func (v *Validator) CheckJenkins() []report.Finding {
	out := v.CheckHostPort("JENKINS_ADDRESS", false)
	if v.bindings.GetOrEmpty("JENKINS_ADDRESS") != "" &&
		v.bindings.GetOrEmpty("JENKINS_USERNAME") == "" {
		out = append(out, report.Finding{
			Kind:   report.MissingField,
			Field:  "JENKINS_USERNAME",
			Detail: "is required because JENKINS_ADDRESS is provided",
		})
	}
	return out
}
