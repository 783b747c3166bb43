package hdfskit

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrFileSystemExists is returned when a handle is already open for an authority
	ErrFileSystemExists = fmt.Errorf("file system already exists: %w", ErrExist)
	// ErrFileSystemNotFound is returned when no handle is open for an authority
	ErrFileSystemNotFound = fmt.Errorf("file system not found: %w", ErrNotExist)
)

// AuthorityKey derives the registry key for uri from its scheme, user info,
// host and port. URIs that differ only in path share a key.
func AuthorityKey(uri *url.URL) string {
	port := -1
	if p := uri.Port(); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}
	userInfo := ""
	if uri.User != nil {
		userInfo = uri.User.String()
	}
	raw := fmt.Sprintf("%s://%s@%s:%d", strings.ToLower(uri.Scheme), userInfo, uri.Hostname(), port)
	sum := sha1.Sum([]byte(raw))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Registry maps authority keys to live file system handles. At most one
// handle exists per key; Close on a handle removes it.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*FileSystem
	pending map[string]chan struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*FileSystem),
		pending: make(map[string]chan struct{}),
	}
}

// Create runs open and stores its result under key. The lock is not held
// while open runs; a key being opened is marked pending and later callers
// for that key wait for the outcome. Other keys are not blocked.
func (r *Registry) Create(key string, open func() (*FileSystem, error)) (*FileSystem, error) {
	r.mu.Lock()
	for {
		if _, exists := r.handles[key]; exists {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrFileSystemExists, key)
		}
		wait, busy := r.pending[key]
		if !busy {
			break
		}
		r.mu.Unlock()
		<-wait
		r.mu.Lock()
	}
	done := make(chan struct{})
	r.pending[key] = done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
		close(done)
	}()

	fs, err := open()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.handles[key] = fs
	r.mu.Unlock()
	return fs, nil
}

// Lookup returns the handle registered under key.
func (r *Registry) Lookup(key string) (*FileSystem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, exists := r.handles[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFileSystemNotFound, key)
	}
	return fs, nil
}

// Unregister removes fs if it is still the handle registered under its key.
func (r *Registry) Unregister(fs *FileSystem) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.handles[fs.key]; exists && current == fs {
		delete(r.handles, fs.key)
		return true
	}
	return false
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
