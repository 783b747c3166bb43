package hdfskit

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cast"
)

// ByteChannel is a single-direction stream over a remote file. A channel
// opened for reading rejects writes and the reverse. Channels are not safe
// for concurrent use.
type ByteChannel interface {
	io.ReadWriteCloser
	// Position returns the current offset in the file.
	Position() (int64, error)
	SetPosition(pos int64) error
	// Size returns the current length of the file.
	Size(ctx context.Context) (int64, error)
	Truncate(size int64) error
	IsOpen() bool
}

// channelBase holds what read and write channels share: the path, the
// cleanup context and the delete-on-close state.
type channelBase struct {
	path          *Path
	name          string
	ctx           context.Context
	closed        bool
	deleteOnClose bool
	deleted       bool
}

func (c *channelBase) IsOpen() bool { return !c.closed }

func (c *channelBase) closedErr(op string) error {
	return &PathError{Op: op, Path: c.path.String(), Err: ErrClosed}
}

// finish runs after the stream closed successfully. The delete happens at
// most once per channel.
func (c *channelBase) finish() error {
	if !c.deleteOnClose || c.deleted {
		return nil
	}
	c.deleted = true
	fs := c.path.fs
	if err := fs.session.Delete(c.ctx, c.name, false); err != nil {
		err = translate("delete", err, c.path)
		fs.logger.Warn().Err(err).Str("path", c.name).Msg("delete on close failed")
		return err
	}
	fs.cancelDeleteOnExit(c.name)
	return nil
}

type readChannel struct {
	channelBase
	in     InputStream
	direct DirectReader
	buf    []byte
}

func (c *readChannel) Read(p []byte) (int, error) {
	if c.closed {
		return 0, c.closedErr("read")
	}
	if len(p) == 0 {
		return 0, nil
	}

	if c.direct != nil {
		n, err := c.direct.ReadDirect(p)
		c.path.fs.provider.metrics.addBytesRead(n)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, io.EOF) && n > 0:
			return n, nil
		case errors.Is(err, io.EOF):
			return 0, io.EOF
		}
		return n, translate("read", err, c.path)
	}

	total := 0
	for total < len(p) {
		chunk := min(len(c.buf), len(p)-total)
		n, err := c.in.Read(c.buf[:chunk])
		copy(p[total:], c.buf[:n])
		total += n
		if errors.Is(err, io.EOF) {
			if total == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			c.path.fs.provider.metrics.addBytesRead(total)
			return total, translate("read", err, c.path)
		}
		if n == 0 {
			break
		}
	}
	c.path.fs.provider.metrics.addBytesRead(total)
	return total, nil
}

func (c *readChannel) Write(p []byte) (int, error) {
	return 0, unsupported("write", c.path.String())
}

func (c *readChannel) Position() (int64, error) {
	if c.closed {
		return 0, c.closedErr("position")
	}
	pos, err := c.in.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, translate("position", err, c.path)
	}
	return pos, nil
}

func (c *readChannel) SetPosition(pos int64) error {
	if c.closed {
		return c.closedErr("seek")
	}
	if pos < 0 {
		return argError("seek", c.path.String(), "negative position %d", pos)
	}
	if _, err := c.in.Seek(pos, io.SeekStart); err != nil {
		return translate("seek", err, c.path)
	}
	return nil
}

func (c *readChannel) Size(ctx context.Context) (int64, error) {
	if c.closed {
		return 0, c.closedErr("size")
	}
	st, err := c.path.fs.session.GetFileStatus(ctx, c.name)
	if err != nil {
		return 0, translate("size", err, c.path)
	}
	return st.Length, nil
}

func (c *readChannel) Truncate(size int64) error {
	return unsupported("truncate", c.path.String())
}

func (c *readChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.in.Close(); err != nil {
		return translate("close", err, c.path)
	}
	return c.finish()
}

type writeChannel struct {
	channelBase
	out     OutputStream
	written int64
}

func (c *writeChannel) Read(p []byte) (int, error) {
	return 0, unsupported("read", c.path.String())
}

func (c *writeChannel) Write(p []byte) (int, error) {
	if c.closed {
		return 0, c.closedErr("write")
	}
	n, err := c.out.Write(p)
	c.written += int64(n)
	c.path.fs.provider.metrics.addBytesWritten(n)
	if err != nil {
		return n, translate("write", err, c.path)
	}
	return n, nil
}

func (c *writeChannel) Position() (int64, error) {
	if c.closed {
		return 0, c.closedErr("position")
	}
	return c.written, nil
}

func (c *writeChannel) SetPosition(pos int64) error {
	return unsupported("seek", c.path.String())
}

func (c *writeChannel) Size(ctx context.Context) (int64, error) {
	if c.closed {
		return 0, c.closedErr("size")
	}
	n, err := c.out.Size()
	if err != nil {
		return 0, translate("size", err, c.path)
	}
	return n, nil
}

func (c *writeChannel) Truncate(size int64) error {
	return unsupported("truncate", c.path.String())
}

func (c *writeChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.out.Close(); err != nil {
		return translate("close", err, c.path)
	}
	return c.finish()
}

func openReadChannel(ctx context.Context, p *Path, opts OpenOption) (ByteChannel, error) {
	fs := p.fs
	if opts.Has(OpenWrite) {
		return nil, unsupported("open", p.String())
	}

	name := p.backendPath()
	base := channelBase{
		path:          p,
		name:          name,
		ctx:           context.WithoutCancel(ctx),
		deleteOnClose: opts.Has(OpenDeleteOnClose),
	}
	if base.deleteOnClose {
		fs.markDeleteOnExit(name)
	}

	in, err := fs.session.Open(ctx, name)
	if err != nil {
		if base.deleteOnClose {
			fs.cancelDeleteOnExit(name)
		}
		return nil, translate("open", err, p)
	}

	c := &readChannel{channelBase: base, in: in}
	if dr, ok := in.(DirectReader); ok {
		c.direct = dr
	} else {
		c.buf = make([]byte, fs.cfg.StreamBufferSize)
	}
	return c, nil
}

func openWriteChannel(ctx context.Context, p *Path, opts OpenOption, attrs []FileAttribute) (ByteChannel, error) {
	fs := p.fs
	copts, err := createOptions(p, opts, attrs)
	if err != nil {
		return nil, err
	}

	name := p.backendPath()
	base := channelBase{
		path:          p,
		name:          name,
		ctx:           context.WithoutCancel(ctx),
		deleteOnClose: opts.Has(OpenDeleteOnClose),
	}
	if base.deleteOnClose {
		fs.markDeleteOnExit(name)
	}

	out, err := fs.session.Create(ctx, name, copts)
	if err != nil {
		if base.deleteOnClose {
			fs.cancelDeleteOnExit(name)
		}
		return nil, translate("create", err, p)
	}

	c := &writeChannel{channelBase: base, out: out}
	if copts.Flags.Has(FlagAppend) {
		if n, err := out.Size(); err == nil {
			c.written = n
		}
	}
	return c, nil
}

// createOptions derives the backend create options from the open options,
// the initial attributes and the handle configuration.
func createOptions(p *Path, opts OpenOption, attrs []FileAttribute) (CreateOptions, error) {
	cfg := p.fs.cfg
	copts := CreateOptions{
		Flags:       opts.createFlags(),
		BlockSize:   cfg.BlockSize,
		Replication: int16(cfg.Replication),
		Permission:  0o666 &^ cfg.UMaskBits(),
		BufferSize:  cfg.StreamBufferSize,
	}

	if v, ok := findAttribute(attrs, ViewHadoop+":"+AttrBlockSize); ok {
		n, err := cast.ToInt64E(v)
		if err != nil || n <= 0 {
			return copts, argError("create", p.String(), "invalid block size %v", v)
		}
		copts.BlockSize = n
	}
	if v, ok := findAttribute(attrs, ViewHadoop+":"+AttrReplication); ok {
		n, err := cast.ToInt16E(v)
		if err != nil || n <= 0 {
			return copts, argError("create", p.String(), "invalid replication %v", v)
		}
		copts.Replication = n
	}
	if limit := int16(cfg.ReplicationMax); copts.Replication > limit {
		copts.Replication = limit
	}
	if v, ok := findAttribute(attrs, ViewPosix+":"+AttrPermissions); ok {
		perm, err := toPermission(v)
		if err != nil {
			return copts, &PathError{Op: "create", Path: p.String(), Err: err}
		}
		copts.Permission = perm
	}
	return copts, nil
}
