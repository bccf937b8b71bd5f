// Package bindings loads the flat KEY=VALUE deployment configuration that
// spincheck validates. The file is the bash-sourced spinnaker_config.cfg, so
// the loader tolerates comments, blank lines, an optional "export " prefix,
// and quoted values, but nothing fancier. Keys are case-sensitive.
package bindings

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/spincheck/spincheck/internal/filesys"
)

// ErrNoBindings is returned when the deployment configuration file is missing.
var ErrNoBindings = errors.New("deployment configuration file not found")

// Bindings is the resolved configuration key-value mapping consumed by
// validation. It is immutable for the duration of a validation run.
type Bindings map[string]string

// Get returns the value for name and whether the key is present.
// A key bound to the empty string is still present.
func (b Bindings) Get(name string) (string, bool) {
	v, ok := b[name]
	return v, ok
}

// GetOrEmpty returns the value for name, or "" when the key is absent.
func (b Bindings) GetOrEmpty(name string) string {
	return b[name]
}

// Loader reads bindings from a file on an injected file system.
type Loader struct {
	fs   filesys.FS
	path string
}

// NewLoader creates a Loader for the given file path.
func NewLoader(fs filesys.FS, path string) *Loader {
	return &Loader{fs: fs, path: path}
}

// Load parses the configuration file into a Bindings map.
// Malformed lines are aggregated into a single returned error; well-formed
// lines before and after a malformed one are still loaded.
func (l *Loader) Load() (Bindings, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBindings
		}
		return nil, fmt.Errorf("opening bindings file: %w", err)
	}
	defer f.Close()

	b := make(Bindings)
	var errs error

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) == "" {
			errs = multierr.Append(errs,
				fmt.Errorf("line %d: not in KEY=VALUE form", lineno))
			continue
		}
		b[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading bindings file: %w", err)
	}
	if errs != nil {
		return b, fmt.Errorf("parsing %s: %w", l.path, errs)
	}
	return b, nil
}

// unquote strips one matching pair of single or double quotes.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') ||
			(v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
