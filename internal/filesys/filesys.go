// Package filesys provides the file system abstraction used by spincheck.
// It defines the small read-only surface the bindings loader and the
// permission checks need, with an implementation that delegates to the
// standard library, making it easier to test code that inspects files
// and their modes.
package filesys

import (
	"io/fs"
	"os"
)

// FS is the tiny surface the *config loaders* and the *security checks* need.
// It is intentionally read-only: spincheck never mutates the deployment
// it is validating.
type FS interface {
	Stat(string) (fs.FileInfo, error)
	Open(string) (*os.File, error)
	ReadFile(string) ([]byte, error)
}

// OS returns a file system implementation that delegates to the standard
// library. The returned implementation satisfies the FS interface.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements FS against the local disk.
// All methods delegate to the standard library.
type OsFS struct{}

func (OsFS) Stat(p string) (fs.FileInfo, error) { return os.Stat(p) }
func (OsFS) Open(p string) (*os.File, error)    { return os.Open(p) }
func (OsFS) ReadFile(p string) ([]byte, error)  { return os.ReadFile(p) }

var _ FS = OsFS{}
