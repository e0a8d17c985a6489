// Package archive uploads finished report files to a filesystem directory or an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Archiver stores one report object under a key and returns where it landed
type Archiver interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// Config selects and configures an archive target
type Config struct {
	Target string // fs or s3
	Dir    string
	S3     S3Config
}

// New builds the archiver named by cfg.Target
func New(ctx context.Context, cfg Config) (Archiver, error) {
	switch strings.ToLower(cfg.Target) {
	case "", "fs":
		return NewFS(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported archive target: %s (expected: fs or s3)", cfg.Target)
	}
}

// FSArchiver copies reports below a root directory
type FSArchiver struct {
	root string
}

// NewFS creates a filesystem archiver rooted at dir
func NewFS(dir string) (*FSArchiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FSArchiver{root: dir}, nil
}

// Put writes r to root/key, creating intermediate directories
func (a *FSArchiver) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("archive key required")
	}
	target := filepath.Join(a.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create dirs: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return target, nil
}

// UploadFiles archives each file under prefix/<file name>, in the order given, and
// returns the locations reported by the archiver
func UploadFiles(ctx context.Context, a Archiver, files []string, prefix string) ([]string, error) {
	locations := make([]string, 0, len(files))
	for _, filename := range files {
		location, err := uploadFile(ctx, a, filename, path.Join(prefix, filepath.Base(filename)))
		if err != nil {
			return locations, err
		}
		locations = append(locations, location)
	}
	return locations, nil
}

func uploadFile(ctx context.Context, a Archiver, filename, key string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	location, err := a.Put(ctx, key, file, contentType(filename))
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return location, nil
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
