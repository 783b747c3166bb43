package hdfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/colinmarc/hdfs/v2"
	"github.com/colinmarc/hdfs/v2/hadoopconf"

	"github.com/gobeaver/hdfskit"
)

// DefaultPort is the namenode RPC port used when the URI carries none
const DefaultPort = 8020

// Config holds HDFS connection configuration
type Config struct {
	// Addresses of the namenodes (host:port). Empty means the addresses
	// configured in HADOOP_CONF_DIR or HADOOP_HOME.
	Addresses []string
	// User to act as
	User string
	// PageSize is the number of entries fetched per listing round trip
	PageSize int
	// UseDatanodeHostname dials datanodes by hostname instead of IP
	UseDatanodeHostname bool
	// Groups the user belongs to. The namenode protocol offers no group
	// lookup, so they are taken as given.
	Groups []string
}

// Adapter implements hdfskit.Session over the namenode RPC protocol
type Adapter struct {
	client *hdfs.Client
	uri    *url.URL
	cfg    Config
}

// New connects to the namenodes of cfg
func New(uri *url.URL, cfg Config) (*Adapter, error) {
	opts := hdfs.ClientOptions{
		Addresses:           cfg.Addresses,
		User:                cfg.User,
		UseDatanodeHostname: cfg.UseDatanodeHostname,
	}
	if len(opts.Addresses) == 0 {
		conf, err := hadoopconf.LoadFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to load hadoop configuration: %w", err)
		}
		fromConf := hdfs.ClientOptionsFromConf(conf)
		opts.Addresses = fromConf.Addresses
		if opts.User == "" {
			opts.User = fromConf.User
		}
	}
	if len(opts.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no namenode address", hdfskit.ErrInvalidArgument)
	}

	client, err := hdfs.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to namenode: %w", err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}

	return &Adapter{
		client: client,
		uri:    &url.URL{Scheme: uri.Scheme, User: uri.User, Host: uri.Host},
		cfg:    cfg,
	}, nil
}

// addressOf returns the namenode address named by the URI authority
func addressOf(uri *url.URL) string {
	if uri.Hostname() == "" {
		return ""
	}
	port := uri.Port()
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	return net.JoinHostPort(uri.Hostname(), port)
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// URI returns the default URI of the cluster
func (a *Adapter) URI() *url.URL {
	u := *a.uri
	return &u
}

// Open implements hdfskit.Session
func (a *Adapter) Open(ctx context.Context, name string) (hdfskit.InputStream, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	f, err := a.client.Open(name)
	if err != nil {
		return nil, err
	}
	if f.Stat().IsDir() {
		f.Close()
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcFileNotFound, Msg: "Path is not a file: " + name}
	}
	return f, nil
}

// Create implements hdfskit.Session. Overwrite removes an existing file
// before the new one is created.
func (a *Adapter) Create(ctx context.Context, name string, opts hdfskit.CreateOptions) (hdfskit.OutputStream, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	info, err := a.client.Stat(name)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if exists && info.IsDir() {
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcFileAlreadyExists, Msg: name + " already exists as a directory"}
	}

	var w *hdfs.FileWriter
	var size int64
	switch {
	case exists && opts.Flags.Has(hdfskit.FlagAppend):
		size = info.Size()
		w, err = a.client.Append(name)
	case exists && !opts.Flags.Has(hdfskit.FlagOverwrite):
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrExist}
	case !exists && !opts.Flags.Has(hdfskit.FlagCreate):
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrNotExist}
	default:
		if exists {
			if err := a.client.Remove(name); err != nil {
				return nil, err
			}
		}
		replication := int(opts.Replication)
		if replication <= 0 {
			replication = 3
		}
		blockSize := opts.BlockSize
		if blockSize <= 0 {
			blockSize = 128 << 20
		}
		w, err = a.client.CreateFile(name, replication, blockSize, opts.Permission.Perm())
	}
	if err != nil {
		return nil, err
	}
	return &outputStream{w: w, size: size, sync: opts.Flags.Has(hdfskit.FlagSyncBlock)}, nil
}

// Delete implements hdfskit.Session
func (a *Adapter) Delete(ctx context.Context, name string, recursive bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !recursive {
		return a.client.Remove(name)
	}
	if _, err := a.client.Stat(name); err != nil {
		return err
	}
	return a.client.RemoveAll(name)
}

// Rename implements hdfskit.Session. The client always replaces an existing
// target, so without overwrite the target is checked first.
func (a *Adapter) Rename(ctx context.Context, from, to string, overwrite bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !overwrite {
		_, err := a.client.Stat(to)
		if err == nil {
			return &os.PathError{Op: "rename", Path: to, Err: os.ErrExist}
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return a.client.Rename(from, to)
}

// Mkdir implements hdfskit.Session
func (a *Adapter) Mkdir(ctx context.Context, name string, perm os.FileMode, parents bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if parents {
		return a.client.MkdirAll(name, perm.Perm())
	}
	return a.client.Mkdir(name, perm.Perm())
}

// statusFields is the part of the namenode file status the client exposes
// through FileInfo.Sys.
type statusFields interface {
	GetBlockReplication() uint32
	GetBlocksize() uint64
	GetFileId() uint64
}

func toStatus(name string, fi os.FileInfo) *hdfskit.FileStatus {
	st := &hdfskit.FileStatus{
		Path:       name,
		Length:     fi.Size(),
		IsDir:      fi.IsDir(),
		IsFile:     fi.Mode().IsRegular(),
		IsSymlink:  fi.Mode()&os.ModeSymlink != 0,
		ModTime:    fi.ModTime(),
		Permission: fi.Mode().Perm(),
	}
	if hfi, ok := fi.(*hdfs.FileInfo); ok {
		st.Owner = hfi.Owner()
		st.Group = hfi.OwnerGroup()
		st.AccessTime = hfi.AccessTime()
	}
	if sf, ok := fi.Sys().(statusFields); ok {
		st.Replication = int16(sf.GetBlockReplication())
		st.BlockSize = int64(sf.GetBlocksize())
		st.FileID = sf.GetFileId()
	}
	return st
}

// GetFileStatus implements hdfskit.Session
func (a *Adapter) GetFileStatus(ctx context.Context, name string) (*hdfskit.FileStatus, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	fi, err := a.client.Stat(name)
	if err != nil {
		return nil, err
	}
	return toStatus(name, fi), nil
}

// ListStatus implements hdfskit.Session. Each page is one Readdir round trip.
func (a *Adapter) ListStatus(ctx context.Context, name string) (hdfskit.StatusIterator, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	f, err := a.client.Open(name)
	if err != nil {
		return nil, err
	}
	if !f.Stat().IsDir() {
		f.Close()
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcPathIsNotDirectory, Msg: name + " is not a directory"}
	}
	return &listing{f: f, dir: name, pageSize: a.cfg.PageSize}, nil
}

type listing struct {
	f        *hdfs.FileReader
	dir      string
	pageSize int
}

func (l *listing) NextPage(ctx context.Context) ([]*hdfskit.FileStatus, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	infos, err := l.f.Readdir(l.pageSize)
	if len(infos) == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	if err != nil && err != io.EOF {
		return nil, err
	}

	page := make([]*hdfskit.FileStatus, len(infos))
	for i, fi := range infos {
		page[i] = toStatus(path.Join(l.dir, fi.Name()), fi)
	}
	return page, nil
}

func (l *listing) Close() error {
	return l.f.Close()
}

// SetOwner implements hdfskit.Session
func (a *Adapter) SetOwner(ctx context.Context, name, owner, group string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	return a.client.Chown(name, owner, group)
}

// SetPermission implements hdfskit.Session
func (a *Adapter) SetPermission(ctx context.Context, name string, perm os.FileMode) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	return a.client.Chmod(name, perm.Perm())
}

// SetTimes implements hdfskit.Session
func (a *Adapter) SetTimes(ctx context.Context, name string, mtime, atime time.Time) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	return a.client.Chtimes(name, atime, mtime)
}

// SetReplication is not exposed by the client protocol
func (a *Adapter) SetReplication(ctx context.Context, name string, replication int16) error {
	return fmt.Errorf("%w: set replication", hdfskit.ErrNotSupported)
}

// UserInfo implements hdfskit.Session. Groups are the configured ones; the
// client cannot resolve membership itself.
func (a *Adapter) UserInfo(ctx context.Context) (string, []string, error) {
	return a.client.User(), a.groups(), nil
}

func (a *Adapter) groups() []string {
	return slices.Clone(a.cfg.Groups)
}

// FsStatus implements hdfskit.Session
func (a *Adapter) FsStatus(ctx context.Context) (hdfskit.FsStatus, error) {
	if err := checkContext(ctx); err != nil {
		return hdfskit.FsStatus{}, err
	}
	info, err := a.client.StatFs()
	if err != nil {
		return hdfskit.FsStatus{}, err
	}
	return hdfskit.FsStatus{
		Capacity:  int64(info.Capacity),
		Used:      int64(info.Used),
		Remaining: int64(info.Remaining),
	}, nil
}

// Close implements hdfskit.Session
func (a *Adapter) Close() error {
	return a.client.Close()
}

type outputStream struct {
	w    *hdfs.FileWriter
	size int64
	sync bool
}

func (s *outputStream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.size += int64(n)
	if err == nil && s.sync {
		err = s.w.Flush()
	}
	return n, err
}

func (s *outputStream) Size() (int64, error) {
	return s.size, nil
}

func (s *outputStream) Close() error {
	return s.w.Close()
}
