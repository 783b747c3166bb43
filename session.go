package hdfskit

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"
)

// Session is a connection to one remote cluster. Drivers implement it; the
// provider never talks to a backend any other way. Paths handed to a
// session are absolute, slash separated and clean.
type Session interface {
	// URI returns the default URI of the cluster (scheme and authority).
	URI() *url.URL

	Open(ctx context.Context, name string) (InputStream, error)
	Create(ctx context.Context, name string, opts CreateOptions) (OutputStream, error)
	Delete(ctx context.Context, name string, recursive bool) error
	Rename(ctx context.Context, from, to string, overwrite bool) error
	Mkdir(ctx context.Context, name string, perm os.FileMode, parents bool) error

	GetFileStatus(ctx context.Context, name string) (*FileStatus, error)
	ListStatus(ctx context.Context, name string) (StatusIterator, error)

	// SetOwner leaves the owner or group untouched when passed "".
	SetOwner(ctx context.Context, name, owner, group string) error
	SetPermission(ctx context.Context, name string, perm os.FileMode) error
	SetTimes(ctx context.Context, name string, mtime, atime time.Time) error
	SetReplication(ctx context.Context, name string, replication int16) error

	// UserInfo returns the user the session acts as and its groups.
	UserInfo(ctx context.Context) (user string, groups []string, err error)
	FsStatus(ctx context.Context) (FsStatus, error)

	Close() error
}

// InputStream is an open remote file positioned for reading.
type InputStream interface {
	io.ReadSeekCloser
}

// OutputStream is an open remote file positioned for writing.
type OutputStream interface {
	io.WriteCloser
	// Size returns the length of the file as seen by the stream.
	Size() (int64, error)
}

// DirectReader is implemented by input streams that can fill a caller's
// buffer without an intermediate copy.
type DirectReader interface {
	ReadDirect(p []byte) (int, error)
}

// StatusIterator pages through a directory listing. NextPage returns io.EOF
// once the listing is exhausted.
type StatusIterator interface {
	NextPage(ctx context.Context) ([]*FileStatus, error)
	Close() error
}

// CreateFlag selects create semantics for Session.Create.
type CreateFlag uint8

const (
	FlagCreate CreateFlag = 1 << iota
	FlagOverwrite
	FlagAppend
	FlagSyncBlock
)

// Has reports whether all bits in o are set.
func (f CreateFlag) Has(o CreateFlag) bool { return f&o == o }

func (f CreateFlag) String() string {
	var parts []string
	for _, v := range []struct {
		flag CreateFlag
		name string
	}{
		{FlagCreate, "CREATE"},
		{FlagOverwrite, "OVERWRITE"},
		{FlagAppend, "APPEND"},
		{FlagSyncBlock, "SYNC_BLOCK"},
	} {
		if f.Has(v.flag) {
			parts = append(parts, v.name)
		}
	}
	return strings.Join(parts, "|")
}

// CreateOptions carries everything the backend needs to open a file for
// writing.
type CreateOptions struct {
	Flags       CreateFlag
	BlockSize   int64
	Replication int16
	Permission  os.FileMode
	BufferSize  int
}

// FileStatus is the backend's description of one entry.
type FileStatus struct {
	Path        string
	Length      int64
	IsFile      bool
	IsDir       bool
	IsSymlink   bool
	ModTime     time.Time
	AccessTime  time.Time
	Owner       string
	Group       string
	Permission  os.FileMode
	Replication int16
	BlockSize   int64
	// FileID is the backend inode id, 0 when the backend has none.
	FileID uint64
}

// Name returns the last element of the status path.
func (s *FileStatus) Name() string {
	name := strings.TrimRight(s.Path, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// IsHidden reports whether the entry name starts with "." or "_", the
// Hadoop convention for files ignored by input formats.
func (s *FileStatus) IsHidden() bool {
	name := s.Name()
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// FsStatus describes cluster capacity in bytes.
type FsStatus struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// BulkCopier is implemented by sessions that can run a server-side bulk
// copy job. All srcs are copied into dstDir keeping their names.
type BulkCopier interface {
	BulkCopy(ctx context.Context, srcs []string, dstDir string, overwrite bool) (BulkJob, error)
}

// BulkJob is a running bulk copy.
type BulkJob interface {
	Wait(ctx context.Context) error
}

// ViewSupporter is implemented by sessions that serve fewer attribute views
// than the full set.
type ViewSupporter interface {
	SupportedViews() []string
}
