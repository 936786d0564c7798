package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nvandessel/tumor-lattice/internal/pathutil"
)

// Filesystem stores artifacts as files under a root directory.
type Filesystem struct {
	root string
}

// NewFilesystem returns a sink rooted at root, creating it if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		return nil, fmt.Errorf("filesystem sink root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating sink root: %w", err)
	}
	return &Filesystem{root: abs}, nil
}

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

// Root returns the absolute root directory.
func (s *Filesystem) Root() string { return s.root }

// Put streams r into a temporary file and renames it into place.
func (s *Filesystem) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(k))
	if err := pathutil.Within(s.root, dest); err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dest); err == nil {
		return Info{}, fmt.Errorf("blob %s already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Info{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return Info{}, err
	}

	loc := url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}
	return Info{Key: k, Size: size, ContentType: contentType, Location: loc.String()}, nil
}
