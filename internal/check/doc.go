// Package check implements the domain checks spincheck runs against a
// deployment configuration.
//
// # Check model
//
// A Validator is built from one loaded bindings mapping and runs a fixed
// sequence of independent checks:
//
//  1. GCE scopes        – required cloud-API scopes on the instance's accounts
//  2. GCE provider      – project id, managed project, credential file, account name
//  3. AWS provider      – enabled flag and credential key formats
//  4. Docker            – addresses, enabled flag, target repository
//  5. Jenkins           – address and companion username
//  6. Security          – owner-only permissions on sensitive files
//
// Every check returns the findings it produced instead of mutating shared
// state, and Validate concatenates them, so one violation never hides
// another. The single exception to the accumulate-and-continue policy is the
// project-id fetch in the GCE provider check: without it none of the
// provider comparisons are meaningful, so its failure is returned as an
// error and aborts the run.
//
// # Basic Usage
//
//	v := check.New(b, cfgPath, metadata.New(5*time.Second))
//	rep, err := v.Validate(ctx)
//	if err != nil {
//		log.Fatalf("validation aborted: %v", err)
//	}
//	if !rep.OK() {
//		// render rep.Findings
//	}
//
// # External collaborators
//
// The instance metadata service is consumed through metadata.Client and the
// filesystem through filesys.FS, both injectable, so every check can be
// exercised off-instance with mocks. The optional reachability check takes a
// netcheck resolver via WithResolver; without it address fields are
// validated by syntax only.
//
// # Findings
//
// Checks produce report.Finding values (kind + field + detail). Credential
// values are never copied into a finding; the AWS key checks only name the
// offending field and the pattern it failed.
package check
