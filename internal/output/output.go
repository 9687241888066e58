// Package output delivers encoded exports: to a directory, to an inline
// terminal preview, or both.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Filename returns the export name for t: meme-<unix epoch millis>.png.
func Filename(t time.Time) string {
	return fmt.Sprintf("meme-%d.png", t.UnixMilli())
}

// FileSink writes exports into Dir. Files appear atomically: data goes to a
// temporary file in the same directory which is then renamed.
type FileSink struct {
	Dir string
}

func (s *FileSink) Emit(ctx context.Context, data []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("nothing to write")
	}
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid filename %q", filename)
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".meme-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, filename)); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

// Path returns where filename ends up.
func (s *FileSink) Path(filename string) string {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, filename)
}

// Emitter is anything that accepts an encoded export.
type Emitter interface {
	Emit(ctx context.Context, data []byte, filename string) error
}

// MultiSink emits to every sink in order and stops at the first error.
type MultiSink []Emitter

func (m MultiSink) Emit(ctx context.Context, data []byte, filename string) error {
	for _, s := range m {
		if err := s.Emit(ctx, data, filename); err != nil {
			return err
		}
	}
	return nil
}
