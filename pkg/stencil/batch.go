package stencil

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RenderBatch renders the template once per data set and returns the
// documents in input order. At most Parallelism renders run at once. The
// first failure cancels the renders still running and nothing is returned.
func (pt *PreparedTemplate) RenderBatch(ctx context.Context, batch []TemplateData) ([][]byte, error) {
	limit := pt.config.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	out := make([][]byte, len(batch))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, data := range batch {
		i, data := i, data
		g.Go(func() error {
			var buf bytes.Buffer
			if err := pt.RenderTo(ctx, &buf, data); err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			out[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	pt.logger.Debug("batch of %d documents rendered with parallelism %d", len(batch), limit)
	return out, nil
}
