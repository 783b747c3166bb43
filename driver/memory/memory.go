package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/hdfskit"
)

// node is one file or directory in the in-memory namespace
type node struct {
	dir         bool
	data        []byte
	modTime     time.Time
	accessTime  time.Time
	owner       string
	group       string
	perm        os.FileMode
	replication int16
	blockSize   int64
	id          uint64
}

// Config holds configuration for the memory adapter
type Config struct {
	// User the session acts as and owns new files
	User string
	// Groups of the user; the first one owns new files
	Groups []string
	// Capacity is the reported cluster capacity in bytes (0 = 1 TiB)
	Capacity int64
	// PageSize is the number of entries returned per listing page
	PageSize int
	// Views narrows the attribute views served (nil = all)
	Views []string
	// DirectRead makes input streams implement hdfskit.DirectReader
	DirectRead bool
}

const defaultCapacity int64 = 1 << 40

// Adapter is an in-process cluster implementing hdfskit.Session. Errors
// carry the exception class names a namenode would report.
type Adapter struct {
	mu     sync.RWMutex
	uri    *url.URL
	cfg    Config
	nodes  map[string]*node
	used   int64
	nextID uint64
	closed bool
}

// New creates an empty cluster with only the root directory
func New(uri *url.URL, cfg Config) *Adapter {
	if cfg.User == "" {
		cfg.User = "hadoop"
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = []string{"supergroup"}
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}

	a := &Adapter{
		uri:   &url.URL{Scheme: uri.Scheme, User: uri.User, Host: uri.Host},
		cfg:   cfg,
		nodes: make(map[string]*node),
	}
	now := time.Now()
	a.nodes["/"] = &node{
		dir:     true,
		modTime: now,
		owner:   cfg.User,
		group:   cfg.Groups[0],
		perm:    0o755,
		id:      a.newID(),
	}
	return a
}

func (a *Adapter) newID() uint64 {
	a.nextID++
	return 16384 + a.nextID
}

func remote(class, format string, args ...any) error {
	return &hdfskit.RemoteException{Class: class, Msg: fmt.Sprintf(format, args...)}
}

func notFound(name string) error {
	return remote(hdfskit.ExcFileNotFound, "File does not exist: %s", name)
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// check validates the session state and the path; callers hold a.mu.
func (a *Adapter) check(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if a.closed {
		return fs.ErrClosed
	}
	if !strings.HasPrefix(name, "/") || path.Clean(name) != name {
		return remote(hdfskit.ExcInvalidPath, "Invalid path name %s", name)
	}
	return nil
}

// parentDir returns the parent node of name or the error a namenode reports
// for a missing or non-directory parent. Callers hold a.mu.
func (a *Adapter) parentDir(name string) (*node, error) {
	parent := path.Dir(name)
	p, ok := a.nodes[parent]
	if !ok {
		return nil, remote(hdfskit.ExcFileNotFound, "Parent directory doesn't exist: %s", parent)
	}
	if !p.dir {
		return nil, remote(hdfskit.ExcParentNotDirectory, "Parent path is not a directory: %s", parent)
	}
	return p, nil
}

// children returns the direct children of dir sorted by name. Callers hold a.mu.
func (a *Adapter) children(dir string) []string {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	var out []string
	for name := range a.nodes {
		if name != dir && strings.HasPrefix(name, prefix) && !strings.Contains(name[len(prefix):], "/") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// subtree returns dir and every path below it. Callers hold a.mu.
func (a *Adapter) subtree(dir string) []string {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	out := []string{dir}
	for name := range a.nodes {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// URI returns the default URI of the cluster
func (a *Adapter) URI() *url.URL {
	u := *a.uri
	return &u
}

// Open implements hdfskit.Session
func (a *Adapter) Open(ctx context.Context, name string) (hdfskit.InputStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, name); err != nil {
		return nil, err
	}
	n, ok := a.nodes[name]
	if !ok {
		return nil, notFound(name)
	}
	if n.dir {
		return nil, remote(hdfskit.ExcFileNotFound, "Path is not a file: %s", name)
	}
	n.accessTime = time.Now()

	data := make([]byte, len(n.data))
	copy(data, n.data)
	in := &inputStream{r: bytes.NewReader(data)}
	if a.cfg.DirectRead {
		return &directInputStream{inputStream: in}, nil
	}
	return in, nil
}

// Create implements hdfskit.Session
func (a *Adapter) Create(ctx context.Context, name string, opts hdfskit.CreateOptions) (hdfskit.OutputStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, name); err != nil {
		return nil, err
	}
	if _, err := a.parentDir(name); err != nil {
		return nil, err
	}

	now := time.Now()
	n, exists := a.nodes[name]
	switch {
	case exists && n.dir:
		return nil, remote(hdfskit.ExcFileAlreadyExists, "%s already exists as a directory", name)
	case exists && opts.Flags.Has(hdfskit.FlagAppend):
		n.modTime = now
	case exists && !opts.Flags.Has(hdfskit.FlagOverwrite):
		return nil, remote(hdfskit.ExcFileAlreadyExists, "%s for client already exists", name)
	case exists:
		a.used -= int64(len(n.data))
		n.data = nil
		n.modTime = now
	case !opts.Flags.Has(hdfskit.FlagCreate):
		return nil, notFound(name)
	default:
		n = &node{
			modTime:     now,
			accessTime:  now,
			owner:       a.cfg.User,
			group:       a.cfg.Groups[0],
			perm:        opts.Permission.Perm(),
			replication: opts.Replication,
			blockSize:   opts.BlockSize,
			id:          a.newID(),
		}
		a.nodes[name] = n
	}
	return &outputStream{a: a, n: n, name: name}, nil
}

// Delete implements hdfskit.Session
func (a *Adapter) Delete(ctx context.Context, name string, recursive bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, name); err != nil {
		return err
	}
	if name == "/" {
		return remote(hdfskit.ExcPathIO, "Cannot delete root directory")
	}
	n, ok := a.nodes[name]
	if !ok {
		return notFound(name)
	}
	if n.dir && !recursive && len(a.children(name)) > 0 {
		return remote(hdfskit.ExcPathIsNotEmptyDirectory, "%s is non empty", name)
	}
	for _, p := range a.subtree(name) {
		a.used -= int64(len(a.nodes[p].data))
		delete(a.nodes, p)
	}
	a.touchParent(name)
	return nil
}

func (a *Adapter) touchParent(name string) {
	if p, ok := a.nodes[path.Dir(name)]; ok {
		p.modTime = time.Now()
	}
}

// Rename implements hdfskit.Session
func (a *Adapter) Rename(ctx context.Context, from, to string, overwrite bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, from); err != nil {
		return err
	}
	if err := a.check(ctx, to); err != nil {
		return err
	}
	src, ok := a.nodes[from]
	if !ok {
		return notFound(from)
	}
	if from == to {
		return remote(hdfskit.ExcFileAlreadyExists, "The source %s and destination %s are the same", from, to)
	}
	if strings.HasPrefix(to, from+"/") {
		return remote(hdfskit.ExcPathIO, "Rename destination %s is a descendant of source %s", to, from)
	}
	if _, err := a.parentDir(to); err != nil {
		return err
	}
	if dst, exists := a.nodes[to]; exists {
		switch {
		case !overwrite:
			return remote(hdfskit.ExcFileAlreadyExists, "rename destination %s already exists", to)
		case dst.dir != src.dir:
			return remote(hdfskit.ExcPathIO, "Source %s and destination %s must both be directories or files", from, to)
		case dst.dir && len(a.children(to)) > 0:
			return remote(hdfskit.ExcPathIO, "rename destination directory is not empty: %s", to)
		}
		a.used -= int64(len(dst.data))
		delete(a.nodes, to)
	}

	for _, p := range a.subtree(from) {
		a.nodes[to+strings.TrimPrefix(p, from)] = a.nodes[p]
		delete(a.nodes, p)
	}
	a.touchParent(from)
	a.touchParent(to)
	return nil
}

// Mkdir implements hdfskit.Session
func (a *Adapter) Mkdir(ctx context.Context, name string, perm os.FileMode, parents bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, name); err != nil {
		return err
	}
	if n, exists := a.nodes[name]; exists {
		if parents && n.dir {
			return nil
		}
		return remote(hdfskit.ExcFileAlreadyExists, "%s already exists", name)
	}

	var missing []string
	for p := name; ; p = path.Dir(p) {
		n, exists := a.nodes[p]
		if exists {
			if !n.dir {
				return remote(hdfskit.ExcParentNotDirectory, "Parent path is not a directory: %s", p)
			}
			break
		}
		missing = append(missing, p)
	}
	if len(missing) > 1 && !parents {
		return remote(hdfskit.ExcFileNotFound, "Parent directory doesn't exist: %s", path.Dir(name))
	}

	now := time.Now()
	for i := len(missing) - 1; i >= 0; i-- {
		a.nodes[missing[i]] = &node{
			dir:     true,
			modTime: now,
			owner:   a.cfg.User,
			group:   a.cfg.Groups[0],
			perm:    perm.Perm(),
			id:      a.newID(),
		}
	}
	a.touchParent(missing[len(missing)-1])
	return nil
}

func (a *Adapter) status(name string, n *node) *hdfskit.FileStatus {
	st := &hdfskit.FileStatus{
		Path:       name,
		IsDir:      n.dir,
		IsFile:     !n.dir,
		ModTime:    n.modTime,
		AccessTime: n.accessTime,
		Owner:      n.owner,
		Group:      n.group,
		Permission: n.perm,
		FileID:     n.id,
	}
	if !n.dir {
		st.Length = int64(len(n.data))
		st.Replication = n.replication
		st.BlockSize = n.blockSize
	}
	return st
}

// GetFileStatus implements hdfskit.Session
func (a *Adapter) GetFileStatus(ctx context.Context, name string) (*hdfskit.FileStatus, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(ctx, name); err != nil {
		return nil, err
	}
	n, ok := a.nodes[name]
	if !ok {
		return nil, notFound(name)
	}
	return a.status(name, n), nil
}

// ListStatus implements hdfskit.Session. Pages are read on demand, each
// resuming after the last name returned.
func (a *Adapter) ListStatus(ctx context.Context, name string) (hdfskit.StatusIterator, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(ctx, name); err != nil {
		return nil, err
	}
	n, ok := a.nodes[name]
	if !ok {
		return nil, notFound(name)
	}
	if !n.dir {
		return nil, remote(hdfskit.ExcPathIsNotDirectory, "%s is not a directory", name)
	}
	return &listing{a: a, dir: name}, nil
}

type listing struct {
	a          *Adapter
	dir        string
	startAfter string
	done       bool
}

func (l *listing) NextPage(ctx context.Context) ([]*hdfskit.FileStatus, error) {
	if l.done {
		return nil, io.EOF
	}
	l.a.mu.RLock()
	defer l.a.mu.RUnlock()

	if err := l.a.check(ctx, l.dir); err != nil {
		return nil, err
	}
	if _, ok := l.a.nodes[l.dir]; !ok {
		return nil, notFound(l.dir)
	}

	var page []*hdfskit.FileStatus
	for _, child := range l.a.children(l.dir) {
		if child <= l.startAfter {
			continue
		}
		page = append(page, l.a.status(child, l.a.nodes[child]))
		if len(page) == l.a.cfg.PageSize {
			break
		}
	}
	if len(page) < l.a.cfg.PageSize {
		l.done = true
	}
	if len(page) == 0 {
		return nil, io.EOF
	}
	l.startAfter = page[len(page)-1].Path
	return page, nil
}

func (l *listing) Close() error {
	l.done = true
	return nil
}

func (a *Adapter) update(ctx context.Context, name string, fn func(n *node)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ctx, name); err != nil {
		return err
	}
	n, ok := a.nodes[name]
	if !ok {
		return notFound(name)
	}
	fn(n)
	return nil
}

// SetOwner implements hdfskit.Session
func (a *Adapter) SetOwner(ctx context.Context, name, owner, group string) error {
	return a.update(ctx, name, func(n *node) {
		if owner != "" {
			n.owner = owner
		}
		if group != "" {
			n.group = group
		}
	})
}

// SetPermission implements hdfskit.Session
func (a *Adapter) SetPermission(ctx context.Context, name string, perm os.FileMode) error {
	return a.update(ctx, name, func(n *node) {
		n.perm = perm.Perm()
	})
}

// SetTimes implements hdfskit.Session
func (a *Adapter) SetTimes(ctx context.Context, name string, mtime, atime time.Time) error {
	return a.update(ctx, name, func(n *node) {
		n.modTime = mtime
		n.accessTime = atime
	})
}

// SetReplication implements hdfskit.Session. Directories ignore it.
func (a *Adapter) SetReplication(ctx context.Context, name string, replication int16) error {
	return a.update(ctx, name, func(n *node) {
		if !n.dir {
			n.replication = replication
		}
	})
}

// UserInfo implements hdfskit.Session
func (a *Adapter) UserInfo(ctx context.Context) (string, []string, error) {
	return a.cfg.User, append([]string(nil), a.cfg.Groups...), nil
}

// FsStatus implements hdfskit.Session
func (a *Adapter) FsStatus(ctx context.Context) (hdfskit.FsStatus, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := checkContext(ctx); err != nil {
		return hdfskit.FsStatus{}, err
	}
	return hdfskit.FsStatus{
		Capacity:  a.cfg.Capacity,
		Used:      a.used,
		Remaining: a.cfg.Capacity - a.used,
	}, nil
}

// SupportedViews implements hdfskit.ViewSupporter
func (a *Adapter) SupportedViews() []string {
	if len(a.cfg.Views) == 0 {
		return []string{hdfskit.ViewBasic, hdfskit.ViewPosix, hdfskit.ViewHadoop}
	}
	return append([]string(nil), a.cfg.Views...)
}

// Close implements hdfskit.Session
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Used returns the number of bytes stored
func (a *Adapter) Used() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.used
}

// FileCount returns the number of regular files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	count := 0
	for _, n := range a.nodes {
		if !n.dir {
			count++
		}
	}
	return count
}

type inputStream struct {
	r      *bytes.Reader
	closed bool
}

func (s *inputStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	return s.r.Read(p)
}

func (s *inputStream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, fs.ErrClosed
	}
	return s.r.Seek(offset, whence)
}

func (s *inputStream) Close() error {
	s.closed = true
	return nil
}

type directInputStream struct {
	*inputStream
}

func (s *directInputStream) ReadDirect(p []byte) (int, error) {
	return s.Read(p)
}

type outputStream struct {
	a      *Adapter
	n      *node
	name   string
	closed bool
}

func (s *outputStream) Write(p []byte) (int, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()

	if s.closed || s.a.closed {
		return 0, fs.ErrClosed
	}
	if s.a.used+int64(len(p)) > s.a.cfg.Capacity {
		return 0, remote("org.apache.hadoop.hdfs.protocol.DSQuotaExceededException",
			"The DiskSpace quota is exceeded writing %s", s.name)
	}
	s.n.data = append(s.n.data, p...)
	s.n.modTime = time.Now()
	s.a.used += int64(len(p))
	return len(p), nil
}

func (s *outputStream) Size() (int64, error) {
	s.a.mu.RLock()
	defer s.a.mu.RUnlock()
	return int64(len(s.n.data)), nil
}

func (s *outputStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
