// Package atomicfile writes output files so that a destination is either
// replaced whole or left untouched.
package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"loomquant/pattern"
)

// Write streams write into a temporary file next to path and renames it into
// place only when write and the final flush succeed. Every failure wraps
// pattern.ErrWrite and removes the temporary file.
func Write(path string, write func(io.Writer) error) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: could not create folder %q: %w", pattern.ErrWrite, dir, err)
	}

	outFile, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: could not create temporary destination %q: %w", pattern.ErrWrite, name, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("%w: could not flush temporary destination %q: %w", pattern.ErrWrite, name, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("%w: could not close temporary destination %q: %w", pattern.ErrWrite, name, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), path); defErr != nil {
				err = fmt.Errorf("%w: could not rename destination file %q: %w", pattern.ErrWrite, name, defErr)
			}
		}
		if err != nil {
			os.Remove(outFile.Name())
		}
	}()

	if err = write(outFile); err != nil {
		return fmt.Errorf("%w: %w", pattern.ErrWrite, err)
	}

	canRename = true
	return nil
}
