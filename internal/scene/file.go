package scene

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/memeshot/internal/source"
)

// Write writes a scene snapshot to a YAML file
func Write(s *Scene, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads and validates a scene snapshot from a YAML file. Image
// references are not opened; see Open.
func Read(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}

	return &s, nil
}

// Open starts loading the background and every image field. The returned
// handles may still be pending.
func (s *Scene) Open(ctx context.Context, l source.Loader) {
	if s.BackgroundSrc != "" && s.Background == nil {
		s.Background = source.Open(ctx, s.BackgroundSrc, l)
	}
	for i := range s.ImageFields {
		f := &s.ImageFields[i]
		if f.Src != "" && f.Image == nil {
			f.Image = source.Open(ctx, f.Src, l)
		}
	}
}

// WaitImages blocks until every image handle has finished loading or ctx is
// done. Load failures are not errors here.
func (s *Scene) WaitImages(ctx context.Context) error {
	if s.Background != nil {
		if _, err := s.Background.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	for _, f := range s.ImageFields {
		if f.Image == nil {
			continue
		}
		if _, err := f.Image.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
