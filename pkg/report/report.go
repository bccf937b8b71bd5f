// Package report defines the result schema a validation run produces. It is
// the public contract for automation: the CLI renders these types as text or
// JSON, and detection logic in internal/check only ever constructs them.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Kind tags what went wrong, independent of how it is presented.
type Kind int

const (
	// MissingField: a required key absent from the bindings.
	MissingField Kind = iota
	// InvalidValue: value present but not one of the allowed literals.
	InvalidValue
	// MissingAddress: required address field present but empty.
	MissingAddress
	// MalformedAddress: address fails the host[:port][/path] pattern.
	MalformedAddress
	// MalformedCredential: an AWS key value fails its format pattern.
	// The value itself is never included in the finding.
	MalformedCredential
	// MissingCredentialFile: a credential file path is required but not set.
	MissingCredentialFile
	// NonexistentCredentialFile: a configured credential file path does not
	// exist on disk.
	NonexistentCredentialFile
	// MalformedResourceName: a project id or account name fails its pattern.
	MalformedResourceName
	// MissingScope: a required cloud-API scope was not found among any
	// service account's granted scopes.
	MissingScope
	// InsecurePermissions: a sensitive file grants access to non-owner.
	InsecurePermissions
	// UnresolvableAddress: a configured address host did not resolve.
	UnresolvableAddress
)

var kindNames = map[Kind]string{
	MissingField:              "missing-field",
	InvalidValue:              "invalid-value",
	MissingAddress:            "missing-address",
	MalformedAddress:          "malformed-address",
	MalformedCredential:       "malformed-credential",
	MissingCredentialFile:     "missing-credential-file",
	NonexistentCredentialFile: "nonexistent-credential-file",
	MalformedResourceName:     "malformed-resource-name",
	MissingScope:              "missing-scope",
	InsecurePermissions:       "insecure-permissions",
	UnresolvableAddress:       "unresolvable-address",
}

// String returns the stable machine-readable name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON emits the kind by name, not by ordinal, so the JSON output
// stays stable if kinds are reordered.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Finding is one violation: what kind, which field or path, and any
// contextual detail. Detail never contains credential values.
type Finding struct {
	Kind   Kind   `json:"kind"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// String renders the finding as a single human-readable line.
func (f Finding) String() string {
	switch {
	case f.Field != "" && f.Detail != "":
		return fmt.Sprintf("%s: %q %s", f.Kind, f.Field, f.Detail)
	case f.Field != "":
		return fmt.Sprintf("%s: %q", f.Kind, f.Field)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
}

// Report is the outcome of one validation run.
type Report struct {
	RunID      string    `json:"run_id"`
	ConfigPath string    `json:"config_path"`
	Findings   []Finding `json:"findings"`
}

// New creates an empty report for the given configuration file.
func New(configPath string) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		ConfigPath: configPath,
	}
}

// Add appends findings to the report.
func (r *Report) Add(fs ...Finding) {
	r.Findings = append(r.Findings, fs...)
}

// OK reports whether the run found zero violations.
func (r *Report) OK() bool {
	return len(r.Findings) == 0
}

// WriteJSON writes the report as indented JSON to w.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
