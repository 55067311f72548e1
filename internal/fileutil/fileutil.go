// Package fileutil provides small filesystem helpers shared by the pipeline.
package fileutil

import (
	"fmt"
	"os"
)

// FileSize returns the size of a regular file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}
