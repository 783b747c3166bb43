package hdfskit

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Attribute view names.
const (
	ViewBasic  = "basic"
	ViewPosix  = "posix"
	ViewHadoop = "hdfs"
)

var allViews = []string{ViewBasic, ViewPosix, ViewHadoop}

// FileSystem is a live handle on one cluster authority. It owns the backend
// session and is registered with its provider until closed.
type FileSystem struct {
	provider *Provider
	key      string
	uri      *url.URL
	prefix   string
	session  Session
	cfg      *Config
	logger   zerolog.Logger

	mu           sync.Mutex
	closed       bool
	deleteOnExit map[string]struct{}
}

func newFileSystem(p *Provider, key string, uri *url.URL, session Session, cfg *Config) *FileSystem {
	base := &url.URL{Scheme: uri.Scheme, User: uri.User, Host: uri.Host}
	return &FileSystem{
		provider:     p,
		key:          key,
		uri:          base,
		prefix:       base.String(),
		session:      session,
		cfg:          cfg,
		logger:       p.logger.With().Str("fs", base.Redacted()).Logger(),
		deleteOnExit: make(map[string]struct{}),
	}
}

// Provider returns the provider that created the handle.
func (fs *FileSystem) Provider() *Provider { return fs.provider }

// Key returns the registry key of the handle.
func (fs *FileSystem) Key() string { return fs.key }

// URI returns the default URI (scheme and authority) of the handle.
func (fs *FileSystem) URI() *url.URL {
	u := *fs.uri
	return &u
}

// Scheme returns the URI scheme served by the handle.
func (fs *FileSystem) Scheme() string { return fs.uri.Scheme }

// Config returns the merged configuration of the handle.
func (fs *FileSystem) Config() Config { return *fs.cfg }

// IsOpen reports whether Close has not been called.
func (fs *FileSystem) IsOpen() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return !fs.closed
}

// IsReadOnly is always false; every backend accepts writes.
func (fs *FileSystem) IsReadOnly() bool { return false }

// Separator returns the name separator.
func (fs *FileSystem) Separator() string { return "/" }

// RootDirectories returns the single root of the file system.
func (fs *FileSystem) RootDirectories() []*Path {
	return []*Path{{fs: fs, raw: "/"}}
}

// FileStores returns the single store backing the file system.
func (fs *FileSystem) FileStores() []*FileStore {
	return []*FileStore{newFileStore(fs)}
}

// SupportedAttributeViews returns the attribute view names the backend serves.
func (fs *FileSystem) SupportedAttributeViews() []string {
	if vs, ok := fs.session.(ViewSupporter); ok {
		views := vs.SupportedViews()
		out := make([]string, 0, len(views))
		for _, v := range views {
			if v == ViewBasic || v == ViewPosix || v == ViewHadoop {
				out = append(out, v)
			}
		}
		sort.Strings(out)
		return out
	}
	out := append([]string(nil), allViews...)
	sort.Strings(out)
	return out
}

func (fs *FileSystem) supportsView(name string) bool {
	for _, v := range fs.SupportedAttributeViews() {
		if v == name {
			return true
		}
	}
	return false
}

// GetPath joins first and more into a path. An empty first names the root.
func (fs *FileSystem) GetPath(first string, more ...string) (*Path, error) {
	if first == "" {
		first = fs.Separator()
	}
	p, err := fs.parsePath(first)
	if err != nil {
		return nil, err
	}
	for _, m := range more {
		q, err := fs.parsePath(m)
		if err != nil {
			return nil, err
		}
		p = p.Resolve(q)
	}
	return p, nil
}

// parsePath turns a raw path or a full URI into a Path. A URI must name the
// scheme and authority of fs.
func (fs *FileSystem) parsePath(s string) (*Path, error) {
	if !strings.Contains(s, "://") {
		return &Path{fs: fs, raw: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, argError("getpath", s, "%v", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !strings.EqualFold(u.Scheme, fs.uri.Scheme) {
		return nil, argError("getpath", s, "scheme %q does not match %q", u.Scheme, fs.uri.Scheme)
	}
	if u.Host != "" && AuthorityKey(u) != fs.key {
		return nil, argError("getpath", s, "authority does not match %s", fs.uri.Redacted())
	}
	raw := u.Path
	if raw == "" {
		raw = "/"
	}
	return &Path{fs: fs, qualified: true, raw: raw}, nil
}

// PathMatcher matches paths against a pattern.
type PathMatcher interface {
	Matches(p *Path) bool
}

type globMatcher struct {
	g glob.Glob
}

func (m *globMatcher) Matches(p *Path) bool {
	return p != nil && m.g.Match(p.String())
}

// PathMatcher compiles "glob:<pattern>" (or a bare pattern) into a matcher
// over the full path string. Other syntaxes are not supported.
func (fs *FileSystem) PathMatcher(syntaxAndPattern string) (PathMatcher, error) {
	syntax, pattern := "glob", syntaxAndPattern
	if before, after, ok := strings.Cut(syntaxAndPattern, ":"); ok {
		syntax, pattern = before, after
	}
	if syntax != "glob" {
		return nil, &PathError{Op: "pathmatcher", Path: syntaxAndPattern, Err: ErrNotSupported}
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, argError("pathmatcher", pattern, "%v", err)
	}
	return &globMatcher{g: g}, nil
}

func (fs *FileSystem) ensureOpen(op string, p *Path) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		name := fs.prefix
		if p != nil {
			name = p.String()
		}
		return &PathError{Op: op, Path: name, Err: ErrClosed}
	}
	return nil
}

func (fs *FileSystem) markDeleteOnExit(name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.deleteOnExit[name] = struct{}{}
}

func (fs *FileSystem) cancelDeleteOnExit(name string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.deleteOnExit, name)
}

// Close unregisters the handle, deletes paths still marked delete-on-close
// and closes the session. Calling Close again is a no-op.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	pending := make([]string, 0, len(fs.deleteOnExit))
	for name := range fs.deleteOnExit {
		pending = append(pending, name)
	}
	fs.deleteOnExit = make(map[string]struct{})
	fs.mu.Unlock()

	fs.provider.registry.Unregister(fs)

	var err error
	ctx := context.Background()
	sort.Strings(pending)
	for _, name := range pending {
		derr := translate("delete", fs.session.Delete(ctx, name, false), &Path{fs: fs, raw: name})
		if derr != nil && !IsNotExist(derr) {
			fs.logger.Warn().Err(derr).Str("path", name).Msg("delete on exit failed")
			err = multierr.Append(err, derr)
		}
	}
	if cerr := fs.session.Close(); cerr != nil {
		err = multierr.Append(err, translate("close", cerr))
	}

	fs.provider.metrics.fileSystemClosed(fs.uri.Scheme)
	fs.logger.Info().Msg("file system closed")
	return err
}
