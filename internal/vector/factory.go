package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrEmptySpace is returned when a model or snapshot yields no words.
var ErrEmptySpace = errors.New("embedding space is empty")

// Source locates the vectors to open.
type Source struct {
	ModelPath    string
	Format       string
	SnapshotPath string
	Limit        int
}

// Open loads the embedding space, preferring the snapshot when it exists since it skips
// model parsing. Returns an error if nothing could be loaded or the result is empty.
func Open(ctx context.Context, src Source) (*Space, error) {
	if src.SnapshotPath != "" {
		if _, err := os.Stat(src.SnapshotPath); err == nil {
			return openSnapshot(src.SnapshotPath)
		}
	}
	if src.ModelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	f, err := os.Open(src.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	space, err := LoadWord2Vec(ctx, f, src.Format, src.Limit)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", src.ModelPath, err)
	}
	if space.Size() == 0 {
		return nil, ErrEmptySpace
	}
	return space, nil
}

func openSnapshot(path string) (*Space, error) {
	dims, err := ReadSnapshotDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	space, err := NewSpace(dims)
	if err != nil {
		return nil, err
	}
	if err := space.Load(path); err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	if space.Size() == 0 {
		return nil, ErrEmptySpace
	}
	return space, nil
}
