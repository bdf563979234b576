package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/search"
)

// SchemaSource enumerates indices and their field mappings.
type SchemaSource interface {
	Indices(ctx context.Context) ([]string, error)
	Fields(ctx context.Context, index string) ([]search.Field, error)
}

// Builder fans one FieldProcessor out over every field of every index.
// Fields of one index are processed concurrently with a bounded pool; a
// cancelled context stops the whole build promptly.
type Builder struct {
	Schema    SchemaSource
	Processor *FieldProcessor
	Logger    *slog.Logger

	// PoolWidth bounds concurrent field generations per index.
	PoolWidth int
}

func (b *Builder) width() int {
	if b.PoolWidth > 0 {
		return b.PoolWidth
	}
	return 10
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Build produces a dictionary covering every user index in the cluster.
func (b *Builder) Build(ctx context.Context) (Dictionary, error) {
	start := time.Now()
	indices, err := b.Schema.Indices(ctx)
	if err != nil {
		return nil, err
	}

	var dict Dictionary
	for _, index := range indices {
		entries, err := b.BuildIndex(ctx, index)
		if err != nil {
			return nil, err
		}
		dict = append(dict, entries...)
	}
	observability.ObserveDictionaryBuild(time.Since(start))
	b.logger().Info("dictionary build complete",
		slog.Int("indices", len(indices)),
		slog.Int("entries", len(dict)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return dict, nil
}

// BuildIndex describes every field of one index. Store failures on a
// single field are logged and the field skipped; generation failures
// cancel the remaining work and fail the build.
func (b *Builder) BuildIndex(ctx context.Context, index string) (Dictionary, error) {
	fields, err := b.Schema.Fields(ctx, index)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var entries Dictionary

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.width())
	for _, field := range fields {
		group.Go(func() error {
			entry, err := b.Processor.Process(groupCtx, index, field)
			if err != nil {
				var qerr *search.QueryError
				if errors.As(err, &qerr) {
					b.logger().Warn("field sampling failed, skipping field",
						slog.String("index", index),
						slog.String("field", field.Name),
						slog.String("error", err.Error()),
					)
					observability.ObserveFieldProcessed("skipped")
					return nil
				}
				return err
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
