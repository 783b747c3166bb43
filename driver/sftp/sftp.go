package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"go.uber.org/multierr"

	"github.com/gobeaver/hdfskit"
)

// Adapter implements hdfskit.Session over an SFTP connection. It serves the
// basic and posix attribute views.
type Adapter struct {
	mu      sync.Mutex
	client  *sftp.Client
	sshConn *ssh.Client
	uri     *url.URL
	config  Config
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	KnownHosts string // known_hosts file; empty skips host key verification
	PageSize   int
}

// New connects to the SFTP server of cfg
func New(uri *url.URL, cfg Config) (*Adapter, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	adapter := &Adapter{
		uri:    &url.URL{Scheme: uri.Scheme, User: uri.User, Host: uri.Host},
		config: cfg,
	}
	if err := adapter.connect(); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (a *Adapter) clientConfig() (*ssh.ClientConfig, error) {
	sshConfig := &ssh.ClientConfig{
		User:            a.config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if a.config.KnownHosts != "" {
		cb, err := knownhosts.New(a.config.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		sshConfig.HostKeyCallback = cb
	}

	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}
	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}
	if len(sshConfig.Auth) == 0 {
		return nil, fmt.Errorf("%w: no authentication method provided", hdfskit.ErrInvalidArgument)
	}
	return sshConfig, nil
}

// connect establishes SSH and SFTP connections
func (a *Adapter) connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sshConfig, err := a.clientConfig()
	if err != nil {
		return err
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(a.config.Host, strconv.Itoa(port))
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.sshConn = sshConn
	a.client = sftpClient
	return nil
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.client != nil {
		err = multierr.Append(err, a.client.Close())
		a.client = nil
	}
	if a.sshConn != nil {
		err = multierr.Append(err, a.sshConn.Close())
		a.sshConn = nil
	}
	return err
}

// conn returns the live client or fs.ErrClosed after Close
func (a *Adapter) conn(ctx context.Context) (*sftp.Client, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, os.ErrClosed
	}
	return a.client, nil
}

// mapSFTPError gives server status codes without an os equivalent a
// portable meaning. Not-exist and permission codes already arrive as os
// errors from the client.
func mapSFTPError(err error) error {
	var se *sftp.StatusError
	if errors.As(err, &se) && se.FxCode() == sftp.ErrSSHFxOpUnsupported {
		return fmt.Errorf("%w: %s", hdfskit.ErrNotSupported, se.Error())
	}
	return err
}

// URI returns the default URI of the server
func (a *Adapter) URI() *url.URL {
	u := *a.uri
	return &u
}

// Open implements hdfskit.Session
func (a *Adapter) Open(ctx context.Context, name string) (hdfskit.InputStream, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return nil, err
	}
	fi, err := c.Stat(name)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	if fi.IsDir() {
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcFileNotFound, Msg: "Path is not a file: " + name}
	}
	f, err := c.Open(name)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	return f, nil
}

// Create implements hdfskit.Session
func (a *Adapter) Create(ctx context.Context, name string, opts hdfskit.CreateOptions) (hdfskit.OutputStream, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return nil, err
	}

	fi, err := c.Stat(name)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, mapSFTPError(err)
	}
	if exists && fi.IsDir() {
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcFileAlreadyExists, Msg: name + " already exists as a directory"}
	}

	flags := os.O_WRONLY
	if opts.Flags.Has(hdfskit.FlagCreate) {
		flags |= os.O_CREATE
	}
	var size int64
	switch {
	case opts.Flags.Has(hdfskit.FlagAppend):
		flags |= os.O_APPEND
		if exists {
			size = fi.Size()
		}
	case opts.Flags.Has(hdfskit.FlagOverwrite):
		flags |= os.O_TRUNC
	default:
		flags |= os.O_EXCL
	}

	f, err := c.OpenFile(name, flags)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	if !exists {
		if err := c.Chmod(name, opts.Permission.Perm()); err != nil {
			return nil, multierr.Append(mapSFTPError(err), f.Close())
		}
	}
	return &outputStream{f: f, size: size}, nil
}

// Delete implements hdfskit.Session. SFTP has no recursive delete, so
// directories are emptied entry by entry.
func (a *Adapter) Delete(ctx context.Context, name string, recursive bool) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	fi, err := c.Stat(name)
	if err != nil {
		return mapSFTPError(err)
	}
	if !fi.IsDir() {
		return mapSFTPError(c.Remove(name))
	}

	entries, err := c.ReadDir(name)
	if err != nil {
		return mapSFTPError(err)
	}
	if len(entries) > 0 && !recursive {
		return &hdfskit.RemoteException{Class: hdfskit.ExcPathIsNotEmptyDirectory, Msg: name + " is non empty"}
	}
	return mapSFTPError(a.removeAll(ctx, c, name))
}

// removeAll recursively removes a directory and its contents
func (a *Adapter) removeAll(ctx context.Context, c *sftp.Client, dirPath string) error {
	entries, err := c.ReadDir(dirPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		entryPath := path.Join(dirPath, entry.Name())
		if entry.IsDir() {
			if err := a.removeAll(ctx, c, entryPath); err != nil {
				return err
			}
		} else if err := c.Remove(entryPath); err != nil {
			return err
		}
	}

	return c.RemoveDirectory(dirPath)
}

// Rename implements hdfskit.Session. Overwrite needs the posix-rename
// extension on the server.
func (a *Adapter) Rename(ctx context.Context, from, to string, overwrite bool) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	if _, err := c.Stat(to); err == nil {
		if !overwrite {
			return &os.PathError{Op: "rename", Path: to, Err: os.ErrExist}
		}
		return mapSFTPError(c.PosixRename(from, to))
	}
	return mapSFTPError(c.Rename(from, to))
}

// Mkdir implements hdfskit.Session
func (a *Adapter) Mkdir(ctx context.Context, name string, perm os.FileMode, parents bool) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	if fi, err := c.Stat(name); err == nil {
		if parents && fi.IsDir() {
			return nil
		}
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrExist}
	}

	if parents {
		err = c.MkdirAll(name)
	} else {
		err = c.Mkdir(name)
	}
	if err != nil {
		return mapSFTPError(err)
	}
	return mapSFTPError(c.Chmod(name, perm.Perm()))
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
	if fs, ok := fi.Sys().(*sftp.FileStat); ok {
		st.Owner = strconv.FormatUint(uint64(fs.UID), 10)
		st.Group = strconv.FormatUint(uint64(fs.GID), 10)
		st.AccessTime = time.Unix(int64(fs.Atime), 0)
	}
	return st
}

// GetFileStatus implements hdfskit.Session. Owners are numeric ids.
func (a *Adapter) GetFileStatus(ctx context.Context, name string) (*hdfskit.FileStatus, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return nil, err
	}
	fi, err := c.Lstat(name)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	return toStatus(name, fi), nil
}

// ListStatus implements hdfskit.Session. The server returns the whole
// directory; pages are cut from it client side.
func (a *Adapter) ListStatus(ctx context.Context, name string) (hdfskit.StatusIterator, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return nil, err
	}
	fi, err := c.Stat(name)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	if !fi.IsDir() {
		return nil, &hdfskit.RemoteException{Class: hdfskit.ExcPathIsNotDirectory, Msg: name + " is not a directory"}
	}
	infos, err := c.ReadDir(name)
	if err != nil {
		return nil, mapSFTPError(err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	entries := make([]*hdfskit.FileStatus, len(infos))
	for i, fi := range infos {
		entries[i] = toStatus(path.Join(name, fi.Name()), fi)
	}
	return &listing{entries: entries, pageSize: a.config.PageSize}, nil
}

type listing struct {
	entries  []*hdfskit.FileStatus
	pageSize int
}

func (l *listing) NextPage(ctx context.Context) ([]*hdfskit.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(l.entries) == 0 {
		return nil, io.EOF
	}
	n := min(l.pageSize, len(l.entries))
	page := l.entries[:n]
	l.entries = l.entries[n:]
	return page, nil
}

func (l *listing) Close() error {
	l.entries = nil
	return nil
}

// SetOwner implements hdfskit.Session. Owner and group are numeric ids; an
// empty one keeps the current id.
func (a *Adapter) SetOwner(ctx context.Context, name, owner, group string) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	fi, err := c.Stat(name)
	if err != nil {
		return mapSFTPError(err)
	}
	fs, ok := fi.Sys().(*sftp.FileStat)
	if !ok {
		return fmt.Errorf("%w: no ownership information for %s", hdfskit.ErrNotSupported, name)
	}

	uid, gid := int(fs.UID), int(fs.GID)
	if owner != "" {
		if uid, err = strconv.Atoi(owner); err != nil {
			return fmt.Errorf("%w: owner must be a numeric id: %s", hdfskit.ErrInvalidArgument, owner)
		}
	}
	if group != "" {
		if gid, err = strconv.Atoi(group); err != nil {
			return fmt.Errorf("%w: group must be a numeric id: %s", hdfskit.ErrInvalidArgument, group)
		}
	}
	return mapSFTPError(c.Chown(name, uid, gid))
}

// SetPermission implements hdfskit.Session
func (a *Adapter) SetPermission(ctx context.Context, name string, perm os.FileMode) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	return mapSFTPError(c.Chmod(name, perm.Perm()))
}

// SetTimes implements hdfskit.Session
func (a *Adapter) SetTimes(ctx context.Context, name string, mtime, atime time.Time) error {
	c, err := a.conn(ctx)
	if err != nil {
		return err
	}
	return mapSFTPError(c.Chtimes(name, atime, mtime))
}

// SetReplication has no SFTP equivalent
func (a *Adapter) SetReplication(ctx context.Context, name string, replication int16) error {
	return fmt.Errorf("%w: set replication", hdfskit.ErrNotSupported)
}

// UserInfo implements hdfskit.Session. The numeric owner of the login
// directory stands for the user and its group for the user's groups.
func (a *Adapter) UserInfo(ctx context.Context) (string, []string, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return "", nil, err
	}
	home, err := c.Getwd()
	if err != nil {
		return "", nil, mapSFTPError(err)
	}
	fi, err := c.Stat(home)
	if err != nil {
		return "", nil, mapSFTPError(err)
	}
	st := toStatus(home, fi)
	return st.Owner, []string{st.Group}, nil
}

// FsStatus implements hdfskit.Session through the statvfs extension
func (a *Adapter) FsStatus(ctx context.Context) (hdfskit.FsStatus, error) {
	c, err := a.conn(ctx)
	if err != nil {
		return hdfskit.FsStatus{}, err
	}
	vfs, err := c.StatVFS("/")
	if err != nil {
		return hdfskit.FsStatus{}, mapSFTPError(err)
	}
	total := int64(vfs.TotalSpace())
	free := int64(vfs.FreeSpace())
	return hdfskit.FsStatus{
		Capacity:  total,
		Used:      total - free,
		Remaining: free,
	}, nil
}

// SupportedViews implements hdfskit.ViewSupporter
func (a *Adapter) SupportedViews() []string {
	return []string{hdfskit.ViewBasic, hdfskit.ViewPosix}
}

type outputStream struct {
	f    *sftp.File
	size int64
}

func (s *outputStream) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *outputStream) Size() (int64, error) {
	return s.size, nil
}

func (s *outputStream) Close() error {
	return s.f.Close()
}
