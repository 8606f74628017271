package disclosure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSource reads a disclosure CSV from local disk
type FileSource struct {
	Path string
}

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("could not read disclosure file: %w", err)
	}
	return file, filepath.Base(f.Path), nil
}

// ReaderSource wraps an already open stream, such as an HTTP upload
type ReaderSource struct {
	Name   string
	Reader io.Reader
}

func (r ReaderSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	if rc, ok := r.Reader.(io.ReadCloser); ok {
		return rc, r.Name, nil
	}
	return io.NopCloser(r.Reader), r.Name, nil
}
