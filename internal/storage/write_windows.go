//go:build windows

package storage

import (
	"io/fs"
	"os"
)

// writeFile replaces name. renameio does not support Windows, so the write is
// not atomic there.
func writeFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}
