// Package storage writes scan outputs to a local directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sink stores a named object and reports where it ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Location is a parsed output target: either a filesystem path or an S3
// bucket and key.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

// IsS3 reports whether the location points into a bucket.
func (l Location) IsS3() bool { return l.Bucket != "" }

func (l Location) String() string {
	if l.IsS3() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Dir returns the parent of the location: the key prefix for S3 targets,
// the directory otherwise.
func (l Location) Dir() string {
	if l.IsS3() {
		d := path.Dir(l.Key)
		if d == "." {
			return ""
		}
		return d
	}
	return filepath.Dir(l.Path)
}

// Base returns the final element of the location.
func (l Location) Base() string {
	if l.IsS3() {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Path)
}

// ParseLocation accepts a file path or an "s3://bucket/key" URL.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Location{}, errors.New("empty output location")
	}
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		return Location{Path: s}, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("s3 location %q has no bucket", s)
	}
	return Location{Bucket: bucket, Key: strings.TrimPrefix(key, "/")}, nil
}

// FileSink writes objects below a directory, creating it on demand.
type FileSink struct {
	Dir string
}

// NewFileSink returns a sink rooted at dir ("" means the working directory).
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// Put writes r to Dir/name and returns the absolute path written. Names
// are not allowed to escape Dir.
func (s *FileSink) Put(ctx context.Context, name, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	target := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(target) // #nosec G304 -- target is confined to the sink directory
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	return target, nil
}
