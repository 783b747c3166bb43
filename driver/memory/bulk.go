package memory

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gobeaver/hdfskit"
)

// BulkAdapter is an Adapter that also runs server-side copy jobs.
type BulkAdapter struct {
	*Adapter
}

// NewBulk creates an empty cluster that implements hdfskit.BulkCopier
func NewBulk(uri *url.URL, cfg Config) *BulkAdapter {
	return &BulkAdapter{Adapter: New(uri, cfg)}
}

type bulkJob struct {
	done chan struct{}
	err  error
}

func (j *bulkJob) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BulkCopy copies every source tree into dstDir, creating dstDir first. The
// sources are copied concurrently; the job fails with the first error.
func (b *BulkAdapter) BulkCopy(ctx context.Context, srcs []string, dstDir string, overwrite bool) (hdfskit.BulkJob, error) {
	if err := b.Mkdir(ctx, dstDir, 0o755, true); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range srcs {
		g.Go(func() error {
			return b.copyTree(gctx, src, path.Join(dstDir, path.Base(src)), overwrite)
		})
	}

	job := &bulkJob{done: make(chan struct{})}
	go func() {
		job.err = g.Wait()
		close(job.done)
	}()
	return job, nil
}

func (b *BulkAdapter) copyTree(ctx context.Context, src, dst string, overwrite bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check(ctx, src); err != nil {
		return err
	}
	if _, ok := b.nodes[src]; !ok {
		return notFound(src)
	}
	if _, exists := b.nodes[dst]; exists && !overwrite {
		return remote(hdfskit.ExcFileAlreadyExists, "%s already exists", dst)
	}
	if strings.HasPrefix(dst, src+"/") {
		return remote(hdfskit.ExcPathIO, "Cannot copy %s into itself", src)
	}

	now := time.Now()
	for _, p := range b.subtree(src) {
		n := b.nodes[p]
		target := dst + strings.TrimPrefix(p, src)
		if old, ok := b.nodes[target]; ok {
			b.used -= int64(len(old.data))
		}
		cp := *n
		cp.data = append([]byte(nil), n.data...)
		cp.modTime = now
		cp.accessTime = now
		cp.id = b.newID()
		b.nodes[target] = &cp
		b.used += int64(len(cp.data))
	}
	return nil
}
