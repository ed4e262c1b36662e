// Package osutil provides small OS-level helpers shared across the core.
package osutil

import (
	"errors"
	"os"
)

// TempFilePath creates an empty temporary file under dir (os.TempDir() if
// dir is empty) matching pattern and returns its path without keeping it
// open. The caller owns cleanup.
func TempFilePath(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}

	name := f.Name()
	if err := f.Close(); err != nil {
		return "", errors.Join(err, os.Remove(name))
	}
	return name, nil
}
