// Package testutil provides helpers shared by the package tests: project
// paths and synthetic document photos.
package testutil

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// GetProjectRoot returns the project root directory by finding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	dir := filepath.Dir(filename)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find go.mod file starting from %s", filepath.Dir(filename))
}

// SaveImage writes img to dir/name; the format follows the file extension.
func SaveImage(t *testing.T, img image.Image, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path), "failed to save test image")
	return path
}
