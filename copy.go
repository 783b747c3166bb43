package hdfskit

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
)

// Copy copies the regular file src to dst. Copying a file onto itself only
// checks that it exists. Without CopyReplaceExisting an
// existing dst fails with ErrExist and is left untouched. CopyAttributes
// carries permissions, block size, replication and times where both sides
// serve the view. CopyBulkTransfer runs a server-side job when both paths
// share a handle whose backend can do that, and streams otherwise.
func (pr *Provider) Copy(ctx context.Context, src, dst *Path, opts CopyOption) (err error) {
	defer func() { pr.metrics.observe("copy", err) }()

	if err := pr.checkPath("copy", src); err != nil {
		return err
	}
	if err := pr.checkPath("copy", dst); err != nil {
		return err
	}

	same, err := pr.IsSameFile(src, dst)
	if err != nil {
		return err
	}
	if same {
		_, err = pr.stat(ctx, src)
		return err
	}

	if opts.Has(CopyReplaceExisting) {
		if _, err := pr.DeleteIfExists(ctx, dst, false); err != nil {
			return err
		}
	} else {
		exists, err := pr.Exists(ctx, dst)
		if err != nil {
			return err
		}
		if exists {
			return &PathError{Op: "copy", Path: src.String(), Other: dst.String(),
				Err: fmt.Errorf("%w: could not copy file to destination", ErrExist)}
		}
	}

	if opts.Has(CopyBulkTransfer) && src.fs == dst.fs {
		if bc, ok := src.fs.session.(BulkCopier); ok {
			return pr.bulkCopy(ctx, bc, src, dst, opts)
		}
		src.fs.logger.Debug().Str("src", src.String()).Msg("bulk copy unsupported, streaming")
	}
	return pr.streamCopy(ctx, src, dst, opts)
}

// bulkCopy stages the job output in a fresh tmp<millis> sibling of dst and
// moves the result into place. The staging directory is removed whether or
// not the job succeeded.
func (pr *Provider) bulkCopy(ctx context.Context, bc BulkCopier, src, dst *Path, opts CopyOption) (err error) {
	parent := dst.ToAbsolute().Parent()
	name := src.FileName()
	if parent == nil || name == nil {
		return argError("copy", dst.String(), "bulk copy needs a named source and a target with a parent")
	}

	var staging *Path
	for millis := time.Now().UnixMilli(); ; millis++ {
		staging = parent.Resolve(&Path{fs: dst.fs, raw: fmt.Sprintf("tmp%d", millis)})
		exists, err := pr.Exists(ctx, staging)
		if err != nil {
			return err
		}
		if !exists {
			break
		}
	}

	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		derr := translate("delete", dst.fs.session.Delete(cleanupCtx, staging.backendPath(), true), staging)
		if derr != nil && !IsNotExist(derr) {
			dst.fs.logger.Warn().Err(derr).Str("staging", staging.String()).Msg("bulk copy cleanup failed")
			err = multierr.Append(err, derr)
		}
	}()

	job, err := bc.BulkCopy(ctx, []string{src.backendPath()}, staging.backendPath(), opts.Has(CopyReplaceExisting))
	if err == nil {
		err = job.Wait(ctx)
	}
	pr.metrics.bulkJob(err)
	if err != nil {
		return translate("copy", err, src, dst)
	}

	return pr.Move(ctx, staging.Resolve(name), dst, opts&CopyReplaceExisting)
}

func (pr *Provider) streamCopy(ctx context.Context, src, dst *Path, opts CopyOption) (err error) {
	in, err := pr.NewByteChannel(ctx, src, OpenRead)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	var attrs []FileAttribute
	if opts.Has(CopyAttributes) {
		attrs, err = pr.copyableAttributes(ctx, src, dst)
		if err != nil {
			return err
		}
	}

	openOpts := OpenWrite | OpenCreateNew
	if opts.Has(CopyReplaceExisting) {
		openOpts = OpenWrite | OpenCreate
	}
	out, err := pr.NewByteChannel(ctx, dst, openOpts, attrs...)
	if err != nil {
		return err
	}

	buf := make([]byte, src.fs.cfg.StreamBufferSize)
	if _, err := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{in}, buf); err != nil {
		return multierr.Append(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}

	if opts.Has(CopyAttributes) {
		basic, err := pr.ReadBasicAttributes(ctx, src)
		if err != nil {
			return err
		}
		view, err := pr.AttributeView(dst, ViewBasic)
		if err != nil {
			return err
		}
		return view.SetTimes(ctx, &basic.LastModifiedTime, &basic.LastAccessTime, &basic.CreationTime)
	}
	return nil
}

// copyableAttributes collects the creation attributes both sides share.
func (pr *Provider) copyableAttributes(ctx context.Context, src, dst *Path) ([]FileAttribute, error) {
	var attrs []FileAttribute
	if src.fs.supportsView(ViewPosix) && dst.fs.supportsView(ViewPosix) {
		a, err := pr.ReadPosixAttributes(ctx, src)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, PermissionsAttribute(a.Permissions))
	}
	if src.fs.supportsView(ViewHadoop) && dst.fs.supportsView(ViewHadoop) {
		a, err := pr.ReadHadoopAttributes(ctx, src)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, BlockSizeAttribute(a.BlockSize), ReplicationAttribute(a.Replication))
	}
	return attrs, nil
}

// Move renames src to dst on the backend. Both paths must belong to the
// same handle; otherwise it fails with ErrProviderMismatch.
func (pr *Provider) Move(ctx context.Context, src, dst *Path, opts CopyOption) error {
	if err := pr.checkPath("move", src); err != nil {
		return err
	}
	if dst == nil || dst.fs == nil {
		return argError("move", src.String(), "target is nil")
	}
	if dst.fs.provider != pr || dst.fs != src.fs {
		return &PathError{Op: "move", Path: src.String(), Other: dst.String(), Err: ErrProviderMismatch}
	}
	if err := dst.fs.ensureOpen("move", dst); err != nil {
		return err
	}

	err := translate("move",
		src.fs.session.Rename(ctx, src.backendPath(), dst.backendPath(), opts.Has(CopyReplaceExisting)),
		src, dst)
	pr.metrics.observe("move", err)
	return err
}
