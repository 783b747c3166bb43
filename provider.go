package hdfskit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Provider opens file system handles and serves every file operation on
// paths that belong to them.
type Provider struct {
	registry *Registry
	logger   zerolog.Logger
	metrics  *Metrics
	cfg      *Config
}

// NewProvider creates a provider. Without WithConfig the configuration is
// loaded from the environment, falling back to DefaultConfig when the
// environment holds invalid values.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}
	if p.cfg == nil {
		cfg, err := GetConfig()
		if err != nil {
			p.logger.Warn().Err(err).Msg("invalid environment configuration, using defaults")
			cfg = DefaultConfig()
		}
		p.cfg = cfg
	}
	return p
}

// Registry returns the registry holding the provider's handles.
func (pr *Provider) Registry() *Registry { return pr.registry }

func parseURI(op, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, argError(op, raw, "%v", err)
	}
	if u.Scheme == "" {
		return nil, argError(op, raw, "missing scheme")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// NewFileSystem opens a handle for the authority of uri. env overrides the
// provider configuration with Hadoop-style keys. It fails with ErrExist when
// a handle for the authority is already open.
func (pr *Provider) NewFileSystem(ctx context.Context, uri string, env map[string]any) (*FileSystem, error) {
	u, err := parseURI("newfilesystem", uri)
	if err != nil {
		return nil, err
	}
	cfg, err := pr.cfg.Merge(env)
	if err != nil {
		return nil, &PathError{Op: "newfilesystem", Path: u.Redacted(), Err: err}
	}

	key := AuthorityKey(u)
	fs, err := pr.registry.Create(key, func() (*FileSystem, error) {
		session, err := openSession(ctx, u, cfg)
		if err != nil {
			return nil, err
		}
		return newFileSystem(pr, key, u, session, cfg), nil
	})
	pr.metrics.observe("newfilesystem", err)
	if err != nil {
		return nil, translateName("newfilesystem", err, u.Redacted())
	}

	pr.metrics.fileSystemOpened(u.Scheme)
	fs.logger.Info().Str("key", key).Msg("file system opened")
	return fs, nil
}

// GetFileSystem returns the open handle for the authority of uri. It fails
// with ErrNotExist when none is open.
func (pr *Provider) GetFileSystem(uri string) (*FileSystem, error) {
	u, err := parseURI("getfilesystem", uri)
	if err != nil {
		return nil, err
	}
	fs, err := pr.registry.Lookup(AuthorityKey(u))
	if err != nil {
		return nil, translateName("getfilesystem", err, u.Redacted())
	}
	return fs, nil
}

// GetPath returns the path named by uri on its open handle.
func (pr *Provider) GetPath(uri string) (*Path, error) {
	fs, err := pr.GetFileSystem(uri)
	if err != nil {
		return nil, err
	}
	return fs.parsePath(uri)
}

// checkPath rejects nil paths, paths of another provider and paths whose
// handle is closed, before any backend call.
func (pr *Provider) checkPath(op string, p *Path) error {
	if p == nil || p.fs == nil {
		return argError(op, "", "path is nil")
	}
	if p.fs.provider != pr {
		return argError(op, p.String(), "path belongs to another provider")
	}
	return p.fs.ensureOpen(op, p)
}

// NewByteChannel opens p for reading or writing. OpenWrite without
// OpenRead selects a write channel; every other combination reads.
func (pr *Provider) NewByteChannel(ctx context.Context, p *Path, opts OpenOption, attrs ...FileAttribute) (ByteChannel, error) {
	if err := pr.checkPath("open", p); err != nil {
		return nil, err
	}
	var (
		ch  ByteChannel
		err error
	)
	if opts.forWrite() {
		ch, err = openWriteChannel(ctx, p, opts, attrs)
		pr.metrics.observe("create", err)
	} else {
		ch, err = openReadChannel(ctx, p, opts)
		pr.metrics.observe("open", err)
	}
	return ch, err
}

// NewDirectoryStream lists dir lazily, keeping entries accepted by filter.
// A nil filter accepts everything.
func (pr *Provider) NewDirectoryStream(ctx context.Context, dir *Path, filter Filter) (*DirectoryStream, error) {
	if err := pr.checkPath("readdir", dir); err != nil {
		return nil, err
	}
	it, err := dir.fs.session.ListStatus(ctx, dir.backendPath())
	pr.metrics.observe("readdir", err)
	if err != nil {
		return nil, translate("readdir", err, dir)
	}
	return newDirectoryStream(dir, it, filter), nil
}

func (pr *Provider) dirPermission(op string, p *Path, attrs []FileAttribute) (os.FileMode, error) {
	perm := 0o777 &^ p.fs.cfg.UMaskBits()
	if v, ok := findAttribute(attrs, ViewPosix+":"+AttrPermissions); ok {
		m, err := toPermission(v)
		if err != nil {
			return 0, &PathError{Op: op, Path: p.String(), Err: err}
		}
		perm = m
	}
	return perm, nil
}

// CreateDirectory creates dir; its parent must exist. Creating a directory
// that already exists succeeds. It fails with ErrExist when a file is in
// the way.
func (pr *Provider) CreateDirectory(ctx context.Context, dir *Path, attrs ...FileAttribute) error {
	return pr.mkdir(ctx, "mkdir", dir, false, attrs)
}

// CreateDirectories creates dir and any missing parents.
func (pr *Provider) CreateDirectories(ctx context.Context, dir *Path, attrs ...FileAttribute) error {
	return pr.mkdir(ctx, "mkdirall", dir, true, attrs)
}

func (pr *Provider) mkdir(ctx context.Context, op string, dir *Path, parents bool, attrs []FileAttribute) error {
	if err := pr.checkPath(op, dir); err != nil {
		return err
	}
	perm, err := pr.dirPermission(op, dir, attrs)
	if err != nil {
		return err
	}

	err = translate(op, dir.fs.session.Mkdir(ctx, dir.backendPath(), perm, parents), dir)
	if IsExist(err) {
		if isDir, serr := pr.IsDirectory(ctx, dir); serr == nil && isDir {
			err = nil
		}
	}
	pr.metrics.observe(op, err)
	return err
}

// Delete removes p. A non-empty directory is removed only when recursive
// is set; otherwise it fails with ErrNotEmpty.
func (pr *Provider) Delete(ctx context.Context, p *Path, recursive bool) error {
	if err := pr.checkPath("delete", p); err != nil {
		return err
	}
	err := translate("delete", p.fs.session.Delete(ctx, p.backendPath(), recursive), p)
	pr.metrics.observe("delete", err)
	return err
}

// DeleteIfExists removes p and reports whether it existed.
func (pr *Provider) DeleteIfExists(ctx context.Context, p *Path, recursive bool) (bool, error) {
	err := pr.Delete(ctx, p, recursive)
	if IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (pr *Provider) stat(ctx context.Context, p *Path) (*FileStatus, error) {
	if err := pr.checkPath("stat", p); err != nil {
		return nil, err
	}
	st, err := p.fs.session.GetFileStatus(ctx, p.backendPath())
	if err != nil {
		return nil, translate("stat", err, p)
	}
	return st, nil
}

// Stat returns the backend status of p.
func (pr *Provider) Stat(ctx context.Context, p *Path) (*FileStatus, error) {
	st, err := pr.stat(ctx, p)
	pr.metrics.observe("stat", err)
	return st, err
}

func (pr *Provider) statMatches(ctx context.Context, p *Path, test func(*FileStatus) bool) (bool, error) {
	st, err := pr.stat(ctx, p)
	if IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return test(st), nil
}

// Exists reports whether p exists.
func (pr *Provider) Exists(ctx context.Context, p *Path) (bool, error) {
	return pr.statMatches(ctx, p, func(*FileStatus) bool { return true })
}

// IsDirectory reports whether p exists and is a directory.
func (pr *Provider) IsDirectory(ctx context.Context, p *Path) (bool, error) {
	return pr.statMatches(ctx, p, func(st *FileStatus) bool { return st.IsDir })
}

// IsRegularFile reports whether p exists and is a regular file.
func (pr *Provider) IsRegularFile(ctx context.Context, p *Path) (bool, error) {
	return pr.statMatches(ctx, p, func(st *FileStatus) bool { return st.IsFile })
}

// IsSameFile reports whether a and b name the same file. Paths of
// different handles never do.
func (pr *Provider) IsSameFile(a, b *Path) (bool, error) {
	if a == nil || b == nil {
		return false, argError("samefile", "", "path is nil")
	}
	if err := pr.checkPath("samefile", a); err != nil {
		return false, err
	}
	if a.fs != b.fs {
		return false, nil
	}
	return a.ToRealPath().Equal(b.ToRealPath()), nil
}

// IsHidden reports whether the file name of p starts with "." or "_". The
// path must exist.
func (pr *Provider) IsHidden(ctx context.Context, p *Path) (bool, error) {
	st, err := pr.stat(ctx, p)
	if err != nil {
		return false, err
	}
	st.Path = p.backendPath()
	return st.IsHidden(), nil
}

// GetFileStore returns the store backing p.
func (pr *Provider) GetFileStore(p *Path) (*FileStore, error) {
	if err := pr.checkPath("filestore", p); err != nil {
		return nil, err
	}
	return p.fs.FileStores()[0], nil
}

// CheckAccess verifies that p exists and, for each mode, that the acting
// user's permission class grants it.
func (pr *Provider) CheckAccess(ctx context.Context, p *Path, modes ...AccessMode) error {
	st, err := pr.stat(ctx, p)
	if err != nil {
		pr.metrics.observe("access", err)
		return err
	}
	if len(modes) == 0 {
		return nil
	}
	user, groups, err := p.fs.session.UserInfo(ctx)
	if err != nil {
		return translate("access", err, p)
	}
	if err := checkModes(st, user, groups, modes); err != nil {
		err = &PathError{Op: "access", Path: p.String(), Err: err}
		pr.metrics.observe("access", err)
		return err
	}
	return nil
}

// AttributeView returns the named view of p. The result implements
// PosixView for "posix" and HadoopView for "hdfs".
func (pr *Provider) AttributeView(p *Path, view string) (BasicView, error) {
	if err := pr.checkPath("view", p); err != nil {
		return nil, err
	}
	return newView(p, view)
}

// PosixAttributeView returns the posix view of p.
func (pr *Provider) PosixAttributeView(p *Path) (PosixView, error) {
	v, err := pr.AttributeView(p, ViewPosix)
	if err != nil {
		return nil, err
	}
	return v.(PosixView), nil
}

// HadoopAttributeView returns the hdfs view of p.
func (pr *Provider) HadoopAttributeView(p *Path) (HadoopView, error) {
	v, err := pr.AttributeView(p, ViewHadoop)
	if err != nil {
		return nil, err
	}
	return v.(HadoopView), nil
}

// ReadBasicAttributes reads a fresh snapshot of the basic attributes.
func (pr *Provider) ReadBasicAttributes(ctx context.Context, p *Path) (*BasicAttributes, error) {
	v, err := pr.AttributeView(p, ViewBasic)
	if err != nil {
		return nil, err
	}
	return v.ReadBasic(ctx)
}

// ReadPosixAttributes reads a fresh snapshot of the posix attributes.
func (pr *Provider) ReadPosixAttributes(ctx context.Context, p *Path) (*PosixAttributes, error) {
	v, err := pr.PosixAttributeView(p)
	if err != nil {
		return nil, err
	}
	return v.ReadPosix(ctx)
}

// ReadHadoopAttributes reads a fresh snapshot of the hdfs attributes.
func (pr *Provider) ReadHadoopAttributes(ctx context.Context, p *Path) (*HadoopAttributes, error) {
	v, err := pr.HadoopAttributeView(p)
	if err != nil {
		return nil, err
	}
	return v.ReadHadoop(ctx)
}

// ReadAttributeMap reads "view:name,name" or "view:*" into a map. A bare
// list reads the basic view. Unknown names are left out.
func (pr *Provider) ReadAttributeMap(ctx context.Context, p *Path, attributes string) (map[string]any, error) {
	if err := pr.checkPath("readattributes", p); err != nil {
		return nil, err
	}
	if attributes == "" {
		return nil, argError("readattributes", p.String(), "no attributes requested")
	}
	view, names := splitAttribute(attributes)
	if _, ok := viewTiers[view]; !ok {
		return nil, &PathError{Op: "readattributes", Path: p.String(), Err: fmt.Errorf("%w: view %q", ErrNotSupported, view)}
	}
	v, err := newView(p, view)
	if err != nil {
		return nil, err
	}
	m, err := v.ReadAttributeMap(ctx, names)
	pr.metrics.observe("readattributes", err)
	return m, err
}

// SetAttribute sets one "view:name" attribute. Unknown names fail with
// ErrInvalidArgument and leave every attribute unchanged.
func (pr *Provider) SetAttribute(ctx context.Context, p *Path, attribute string, value any) error {
	if err := pr.checkPath("setattribute", p); err != nil {
		return err
	}
	return setAttribute(ctx, p, attribute, value)
}

// translateName translates err for an operation that has no Path yet.
func translateName(op string, err error, name string) error {
	err = translate(op, err)
	var pe *PathError
	if errors.As(err, &pe) && pe.Path == "" {
		return &PathError{Op: op, Path: name, Err: pe.Err}
	}
	return err
}
