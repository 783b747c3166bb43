package hdfskit

import (
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Attribute field names.
const (
	AttrLastModifiedTime = "lastModifiedTime"
	AttrLastAccessTime   = "lastAccessTime"
	AttrCreationTime     = "creationTime"
	AttrSize             = "size"
	AttrIsRegularFile    = "isRegularFile"
	AttrIsDirectory      = "isDirectory"
	AttrIsSymbolicLink   = "isSymbolicLink"
	AttrIsOther          = "isOther"
	AttrFileKey          = "fileKey"

	AttrOwner       = "owner"
	AttrGroup       = "group"
	AttrPermissions = "permissions"

	AttrIsHidden    = "isHidden"
	AttrBlockSize   = "blockSize"
	AttrReplication = "replication"
)

// BasicAttributes are the attributes every backend provides. CreationTime
// equals LastModifiedTime since the backends keep no creation time.
type BasicAttributes struct {
	LastModifiedTime time.Time
	LastAccessTime   time.Time
	CreationTime     time.Time
	Size             int64
	IsRegularFile    bool
	IsDirectory      bool
	IsSymbolicLink   bool
	IsOther          bool
	FileKey          uint64
}

// PosixAttributes add ownership and permission bits.
type PosixAttributes struct {
	BasicAttributes
	Owner       string
	Group       string
	Permissions os.FileMode
}

// HadoopAttributes add block layout and the hidden flag.
type HadoopAttributes struct {
	PosixAttributes
	IsHidden    bool
	BlockSize   int64
	Replication int16
}

// attributesOf projects one status snapshot onto the widest attribute set.
func attributesOf(p *Path, st *FileStatus) *HadoopAttributes {
	key := st.FileID
	if key == 0 {
		key = xxhash.Sum64String(p.ToAbsolute().String())
	}
	return &HadoopAttributes{
		PosixAttributes: PosixAttributes{
			BasicAttributes: BasicAttributes{
				LastModifiedTime: st.ModTime,
				LastAccessTime:   st.AccessTime,
				CreationTime:     st.ModTime,
				Size:             st.Length,
				IsRegularFile:    st.IsFile,
				IsDirectory:      st.IsDir,
				IsSymbolicLink:   st.IsSymlink,
				IsOther:          !st.IsFile && !st.IsDir && !st.IsSymlink,
				FileKey:          key,
			},
			Owner:       st.Owner,
			Group:       st.Group,
			Permissions: st.Permission.Perm(),
		},
		IsHidden:    st.IsHidden(),
		BlockSize:   st.BlockSize,
		Replication: st.Replication,
	}
}

type attrField struct {
	name string
	get  func(a *HadoopAttributes) any
}

var basicFields = []attrField{
	{AttrLastModifiedTime, func(a *HadoopAttributes) any { return a.LastModifiedTime }},
	{AttrLastAccessTime, func(a *HadoopAttributes) any { return a.LastAccessTime }},
	{AttrCreationTime, func(a *HadoopAttributes) any { return a.CreationTime }},
	{AttrSize, func(a *HadoopAttributes) any { return a.Size }},
	{AttrIsRegularFile, func(a *HadoopAttributes) any { return a.IsRegularFile }},
	{AttrIsDirectory, func(a *HadoopAttributes) any { return a.IsDirectory }},
	{AttrIsSymbolicLink, func(a *HadoopAttributes) any { return a.IsSymbolicLink }},
	{AttrIsOther, func(a *HadoopAttributes) any { return a.IsOther }},
	{AttrFileKey, func(a *HadoopAttributes) any { return a.FileKey }},
}

var posixFields = []attrField{
	{AttrOwner, func(a *HadoopAttributes) any { return a.Owner }},
	{AttrGroup, func(a *HadoopAttributes) any { return a.Group }},
	{AttrPermissions, func(a *HadoopAttributes) any { return a.Permissions }},
}

var hadoopFields = []attrField{
	{AttrIsHidden, func(a *HadoopAttributes) any { return a.IsHidden }},
	{AttrBlockSize, func(a *HadoopAttributes) any { return a.BlockSize }},
	{AttrReplication, func(a *HadoopAttributes) any { return a.Replication }},
}

// viewTiers lists the field tables visible through each view. Wider views
// see every field of the narrower ones.
var viewTiers = map[string][][]attrField{
	ViewBasic:  {basicFields},
	ViewPosix:  {basicFields, posixFields},
	ViewHadoop: {basicFields, posixFields, hadoopFields},
}

// selectFields copies the requested names ("*" for all) out of a. Names the
// view does not know are skipped.
func selectFields(view string, a *HadoopAttributes, names string) map[string]any {
	want := make(map[string]bool)
	all := false
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(n)
		if n == "*" {
			all = true
		}
		want[n] = true
	}

	out := make(map[string]any)
	for _, table := range viewTiers[view] {
		for _, f := range table {
			if all || want[f.name] {
				out[f.name] = f.get(a)
			}
		}
	}
	return out
}

// splitAttribute splits "view:name" into its parts; a bare name belongs to
// the basic view.
func splitAttribute(attribute string) (view, name string) {
	if v, n, ok := strings.Cut(attribute, ":"); ok {
		return v, n
	}
	return ViewBasic, attribute
}
