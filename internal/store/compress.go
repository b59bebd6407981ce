package store

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// CompressedExt marks files stored as snappy framed streams.
const CompressedExt = ".sz"

// Open opens path for reading, decompressing *.sz files on the fly.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !strings.HasSuffix(path, CompressedExt) {
		return f, nil
	}
	return &readCloser{Reader: snappy.NewReader(f), file: f}, nil
}

// Create creates path for writing, compressing *.sz files on the fly. The
// returned writer must be closed to flush buffered data.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if !strings.HasSuffix(path, CompressedExt) {
		return f, nil
	}
	return &writeCloser{w: snappy.NewBufferedWriter(f), file: f}, nil
}

type readCloser struct {
	io.Reader
	file *os.File
}

func (r *readCloser) Close() error { return r.file.Close() }

type writeCloser struct {
	w    *snappy.Writer
	file *os.File
}

func (w *writeCloser) Write(p []byte) (int, error) { return w.w.Write(p) }

func (w *writeCloser) Close() error {
	if err := w.w.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
