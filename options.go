package hdfskit

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Option configures a Provider
type Option func(*Provider)

// WithRegistry sets the registry the provider stores its handles in.
// Providers sharing a registry share handles.
func WithRegistry(r *Registry) Option {
	return func(p *Provider) {
		p.registry = r
	}
}

// WithLogger sets the logger used for lifecycle and cleanup messages
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithMetrics sets the collectors updated by provider operations
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithConfig sets the base configuration merged with the env of every
// NewFileSystem call
func WithConfig(cfg *Config) Option {
	return func(p *Provider) {
		p.cfg = cfg
	}
}

// OpenOption selects how NewByteChannel opens a file
type OpenOption uint16

const (
	OpenRead OpenOption = 1 << iota
	OpenWrite
	OpenAppend
	OpenCreate
	OpenCreateNew
	OpenTruncateExisting
	OpenDeleteOnClose
	OpenSync
	OpenDSync
)

// Has reports whether all bits in f are set
func (o OpenOption) Has(f OpenOption) bool { return o&f == f }

func (o OpenOption) String() string {
	var parts []string
	for _, v := range []struct {
		opt  OpenOption
		name string
	}{
		{OpenRead, "READ"},
		{OpenWrite, "WRITE"},
		{OpenAppend, "APPEND"},
		{OpenCreate, "CREATE"},
		{OpenCreateNew, "CREATE_NEW"},
		{OpenTruncateExisting, "TRUNCATE_EXISTING"},
		{OpenDeleteOnClose, "DELETE_ON_CLOSE"},
		{OpenSync, "SYNC"},
		{OpenDSync, "DSYNC"},
	} {
		if o.Has(v.opt) {
			parts = append(parts, v.name)
		}
	}
	return strings.Join(parts, "|")
}

// forWrite reports whether the options open a write channel. READ wins over
// WRITE and the default is read.
func (o OpenOption) forWrite() bool {
	return o.Has(OpenWrite) && !o.Has(OpenRead)
}

// createFlags derives the backend create flags for a write channel
func (o OpenOption) createFlags() CreateFlag {
	flags := FlagCreate
	if o.Has(OpenAppend) {
		flags |= FlagAppend
	} else if !o.Has(OpenCreateNew) || o.Has(OpenTruncateExisting) {
		flags |= FlagOverwrite
	}
	if o.Has(OpenSync) || o.Has(OpenDSync) {
		flags |= FlagSyncBlock
	}
	return flags
}

// CopyOption modifies Copy and Move
type CopyOption uint8

const (
	CopyReplaceExisting CopyOption = 1 << iota
	CopyAttributes
	CopyBulkTransfer
)

// Has reports whether all bits in f are set
func (o CopyOption) Has(f CopyOption) bool { return o&f == f }

// FileAttribute is an initial attribute applied when a file or directory is
// created. Name uses the "view:field" form.
type FileAttribute struct {
	Name  string
	Value any
}

// PermissionsAttribute sets the initial permission bits
func PermissionsAttribute(perm os.FileMode) FileAttribute {
	return FileAttribute{Name: ViewPosix + ":" + AttrPermissions, Value: perm.Perm()}
}

// BlockSizeAttribute sets the block size of a new file
func BlockSizeAttribute(size int64) FileAttribute {
	return FileAttribute{Name: ViewHadoop + ":" + AttrBlockSize, Value: size}
}

// ReplicationAttribute sets the replication factor of a new file
func ReplicationAttribute(replication int16) FileAttribute {
	return FileAttribute{Name: ViewHadoop + ":" + AttrReplication, Value: replication}
}

func findAttribute(attrs []FileAttribute, name string) (any, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}
