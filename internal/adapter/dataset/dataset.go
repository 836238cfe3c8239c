// Package dataset provides observation sources backed by local data.
package dataset

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the observation document from a file on every load, so
// edits to the file are picked up by the next run.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file the source reads.
func (f *FileSource) Path() string { return f.path }

// Load returns the raw document.
func (f *FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", f.path, err)
	}
	return data, nil
}

// StaticSource serves a fixed document held in memory.
type StaticSource []byte

// Load returns the document.
func (s StaticSource) Load(context.Context) ([]byte, error) {
	return s, nil
}
