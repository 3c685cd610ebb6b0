//go:build !windows

package storage

import (
	"io/fs"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeFile atomically replaces name. The data is staged in a dot-file next to
// name, never in the system temporary directory, and the watcher ignores
// dot-files.
func writeFile(name string, data []byte, perm fs.FileMode) error {
	return renameio.WriteFile(name, data, perm, renameio.WithTempDir(filepath.Dir(name)))
}
