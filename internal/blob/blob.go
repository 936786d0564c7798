// Package blob uploads run artifacts to a filesystem directory or an
// S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Driver identifies a sink implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Info describes one stored artifact.
type Info struct {
	Key         string `json:"key"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	// Location is a URL naming the stored object.
	Location string `json:"location"`
}

// Sink stores artifacts under slash-separated keys. Keys are never
// overwritten.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Driver() Driver
}

// Open parses an upload URL and returns the matching sink:
//
//	file:///abs/dir or a plain path   filesystem sink rooted at the directory
//	s3://bucket/prefix                 S3 sink; see S3ConfigFromEnv
func Open(ctx context.Context, rawURL string) (Sink, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("upload url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upload url: %w", err)
	}
	switch u.Scheme {
	case "", "file":
		root := u.Path
		if u.Scheme == "" {
			root = rawURL
		}
		return NewFilesystem(root)
	case "s3":
		cfg := S3ConfigFromEnv()
		cfg.Bucket = u.Host
		cfg.Prefix = strings.Trim(u.Path, "/")
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported upload scheme %q (valid: file, s3)", u.Scheme)
	}
}

// Upload stores each file under prefix/<base name> and returns what was
// stored, in order. It stops at the first failure.
func Upload(ctx context.Context, sink Sink, prefix string, files []string) ([]Info, error) {
	infos := make([]Info, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return infos, err
		}
		info, err := uploadFile(ctx, sink, path.Join(prefix, filepath.Base(file)), file)
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func uploadFile(ctx context.Context, sink Sink, key, file string) (Info, error) {
	f, err := os.Open(file)
	if err != nil {
		return Info{}, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()
	info, err := sink.Put(ctx, key, f, ContentType(file))
	if err != nil {
		return Info{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	return info, nil
}

// ContentType guesses an artifact's media type from its name.
func ContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// sanitizeKey rejects keys that would escape the sink root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q: contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q: absolute", key)
	}
	return path.Clean(key), nil
}
