package hdfskit

import (
	"context"
	"strings"
)

// Store attribute names served by FileStore.Attribute.
const (
	StoreTotalSpace       = "totalSpace"
	StoreUsableSpace      = "usableSpace"
	StoreUnallocatedSpace = "unallocatedSpace"
)

// FileStore reports capacity of the cluster behind a FileSystem.
type FileStore struct {
	fs *FileSystem
}

func newFileStore(fs *FileSystem) *FileStore {
	return &FileStore{fs: fs}
}

// FileSystem returns the handle the store belongs to.
func (s *FileStore) FileSystem() *FileSystem { return s.fs }

// Name returns the default URI of the cluster.
func (s *FileStore) Name() string { return s.fs.prefix }

// Type returns the URI scheme.
func (s *FileStore) Type() string { return s.fs.Scheme() }

// IsReadOnly is always false.
func (s *FileStore) IsReadOnly() bool { return s.fs.IsReadOnly() }

func (s *FileStore) status(ctx context.Context) (FsStatus, error) {
	if err := s.fs.ensureOpen("fsstatus", nil); err != nil {
		return FsStatus{}, err
	}
	st, err := s.fs.session.FsStatus(ctx)
	if err != nil {
		return FsStatus{}, translate("fsstatus", err, s.fs.RootDirectories()[0])
	}
	return st, nil
}

// TotalSpace returns the raw capacity of the cluster.
func (s *FileStore) TotalSpace(ctx context.Context) (int64, error) {
	st, err := s.status(ctx)
	return st.Capacity, err
}

// UsableSpace returns the remaining capacity.
func (s *FileStore) UsableSpace(ctx context.Context) (int64, error) {
	st, err := s.status(ctx)
	return st.Remaining, err
}

// UnallocatedSpace returns the remaining capacity, same as UsableSpace.
func (s *FileStore) UnallocatedSpace(ctx context.Context) (int64, error) {
	st, err := s.status(ctx)
	return st.Remaining, err
}

// SupportsAttributeView reports whether files in the store serve the named view.
func (s *FileStore) SupportsAttributeView(name string) bool {
	return s.fs.supportsView(name)
}

// Attribute reads "<type>:totalSpace", "<type>:usableSpace" or
// "<type>:unallocatedSpace".
func (s *FileStore) Attribute(ctx context.Context, attribute string) (int64, error) {
	kind, field, ok := strings.Cut(attribute, ":")
	if !ok || kind != s.Type() {
		return 0, &PathError{Op: "storeattribute", Path: attribute, Err: ErrNotSupported}
	}
	switch field {
	case StoreTotalSpace:
		return s.TotalSpace(ctx)
	case StoreUsableSpace:
		return s.UsableSpace(ctx)
	case StoreUnallocatedSpace:
		return s.UnallocatedSpace(ctx)
	}
	return 0, &PathError{Op: "storeattribute", Path: attribute, Err: ErrNotSupported}
}

// Close closes the file system behind the store.
func (s *FileStore) Close() error {
	return s.fs.Close()
}
