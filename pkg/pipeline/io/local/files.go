package local

import (
	"context"
	"fmt"
	"os"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
)

// FileSource loads items from a file on disk.
type FileSource struct {
	Path   string
	Format Format
}

var _ core.InputAdapter[Item] = FileSource{}

func (s FileSource) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	items, err := ReadItems(f, s.Format)
	if err != nil {
		return nil, fmt.Errorf("read items %s: %w", s.Path, err)
	}
	return items, nil
}

// FileSink writes records to a file on disk, replacing any previous content.
type FileSink[T any] struct {
	Path   string
	Format Format
}

func (s FileSink[T]) Store(ctx context.Context, rows []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err := WriteRecords(f, rows, s.Format); err != nil {
		return err
	}
	return f.Close()
}
