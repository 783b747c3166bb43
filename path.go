package hdfskit

import (
	"iter"
	"net/url"
	"path"
	"strings"
)

// Path locates a file on one FileSystem. A Path is immutable; every
// transformation returns a new value. Paths parsed from a full URI are
// qualified (IsAbsolute) and always carry the file system's scheme and
// authority.
type Path struct {
	fs        *FileSystem
	qualified bool
	raw       string
}

func (p *Path) with(raw string) *Path {
	return &Path{fs: p.fs, qualified: p.qualified, raw: raw}
}

func (p *Path) relative(raw string) *Path {
	return &Path{fs: p.fs, raw: raw}
}

// FileSystem returns the handle the path belongs to.
func (p *Path) FileSystem() *FileSystem { return p.fs }

// IsAbsolute reports whether the path carries a scheme.
func (p *Path) IsAbsolute() bool { return p.qualified }

func (p *Path) rooted() bool {
	return p.qualified || strings.HasPrefix(p.raw, "/")
}

// cleaned returns the lexically clean raw path, "" for an empty relative one.
func (p *Path) cleaned() string {
	if p.raw == "" {
		return ""
	}
	c := path.Clean(p.raw)
	if c == "." {
		return ""
	}
	return c
}

func (p *Path) names() []string {
	var out []string
	for _, s := range strings.Split(p.cleaned(), "/") {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}

// Root returns the root directory of the file system.
func (p *Path) Root() *Path {
	return p.relative("/")
}

// Parent returns the parent path or nil when the path has no names. The
// parent of a single relative name is the root.
func (p *Path) Parent() *Path {
	names := p.names()
	switch {
	case len(names) == 0:
		return nil
	case len(names) == 1 && p.rooted():
		return p.with("/")
	case len(names) == 1:
		return p.Root()
	}
	return p.with(path.Dir(p.cleaned()))
}

// FileName returns the last name as a relative path, or nil when there is none.
func (p *Path) FileName() *Path {
	names := p.names()
	if len(names) == 0 {
		return nil
	}
	return p.relative(names[len(names)-1])
}

// NameCount returns the number of names in the normalized path.
func (p *Path) NameCount() int {
	return len(p.names())
}

// Name returns the name at index i as a relative path, or nil when i is out
// of range.
func (p *Path) Name(i int) *Path {
	names := p.names()
	if i < 0 || i >= len(names) {
		return nil
	}
	return p.relative(names[i])
}

// Subpath returns the relative path made of names [begin, end), or nil for
// an invalid range.
func (p *Path) Subpath(begin, end int) *Path {
	names := p.names()
	if begin < 0 || end > len(names) || begin >= end {
		return nil
	}
	return p.relative(strings.Join(names[begin:end], "/"))
}

// Resolve joins other onto p. A qualified other is returned as is and a
// rooted other replaces the path of p.
func (p *Path) Resolve(other *Path) *Path {
	switch {
	case other == nil || other.raw == "" && !other.qualified:
		return p
	case other.qualified:
		return other
	case strings.HasPrefix(other.raw, "/"):
		return p.with(other.raw)
	case p.raw == "":
		return p.with(other.raw)
	case strings.HasSuffix(p.raw, "/"):
		return p.with(p.raw + other.raw)
	}
	return p.with(p.raw + "/" + other.raw)
}

// ResolveString parses other on the same file system and resolves it.
func (p *Path) ResolveString(other string) (*Path, error) {
	q, err := p.fs.parsePath(other)
	if err != nil {
		return nil, err
	}
	return p.Resolve(q), nil
}

// Join resolves each element in turn.
func (p *Path) Join(elem ...string) (*Path, error) {
	out := p
	for _, e := range elem {
		next, err := out.ResolveString(e)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

// ResolveSibling resolves other against the parent of p.
func (p *Path) ResolveSibling(other *Path) *Path {
	parent := p.Parent()
	if parent == nil {
		return other
	}
	return parent.Resolve(other)
}

// ResolveSiblingString parses other and resolves it against the parent of p.
func (p *Path) ResolveSiblingString(other string) (*Path, error) {
	q, err := p.fs.parsePath(other)
	if err != nil {
		return nil, err
	}
	return p.ResolveSibling(q), nil
}

// Relativize returns the relative path that leads from p to other. When the
// two paths do not share a file system other is returned unchanged.
func (p *Path) Relativize(other *Path) *Path {
	if other == nil || other.fs != p.fs {
		return other
	}
	a := p.ToAbsolute().names()
	b := other.ToAbsolute().names()

	k := 0
	for k < len(a) && k < len(b) && a[k] == b[k] {
		k++
	}
	parts := make([]string, 0, len(a)-k+len(b)-k)
	for range len(a) - k {
		parts = append(parts, "..")
	}
	parts = append(parts, b[k:]...)
	return p.relative(strings.Join(parts, "/"))
}

// Normalize removes "." and ".." elements lexically.
func (p *Path) Normalize() *Path {
	return p.with(p.cleaned())
}

// StartsWith compares the leading names of p with the names of other.
func (p *Path) StartsWith(other *Path) bool {
	if other == nil || other.fs != p.fs {
		return false
	}
	a, b := p.names(), other.names()
	if len(b) > len(a) {
		return false
	}
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StartsWithString parses other and reports whether p starts with it.
func (p *Path) StartsWithString(other string) bool {
	q, err := p.fs.parsePath(other)
	return err == nil && p.StartsWith(q)
}

// EndsWith compares the trailing names of p with the names of other.
func (p *Path) EndsWith(other *Path) bool {
	if other == nil || other.fs != p.fs {
		return false
	}
	a, b := p.names(), other.names()
	if len(b) > len(a) {
		return false
	}
	off := len(a) - len(b)
	for i := range b {
		if a[off+i] != b[i] {
			return false
		}
	}
	return true
}

// EndsWithString parses other and reports whether p ends with it.
func (p *Path) EndsWithString(other string) bool {
	q, err := p.fs.parsePath(other)
	return err == nil && p.EndsWith(q)
}

// ToAbsolute qualifies p with the file system's scheme and authority and
// roots it at "/".
func (p *Path) ToAbsolute() *Path {
	return &Path{fs: p.fs, qualified: true, raw: path.Clean("/" + p.raw)}
}

// ToRealPath returns the absolute path. Links are not resolved.
func (p *Path) ToRealPath() *Path {
	return p.ToAbsolute()
}

// ToFile fails; remote paths have no local file.
func (p *Path) ToFile() (string, error) {
	return "", unsupported("tofile", p.String())
}

// Register fails; the file systems served here cannot be watched.
func (p *Path) Register(events ...string) error {
	return unsupported("register", p.String())
}

// Segments yields each name from the first to the last.
func (p *Path) Segments() iter.Seq[*Path] {
	return func(yield func(*Path) bool) {
		for _, n := range p.names() {
			if !yield(p.relative(n)) {
				return
			}
		}
	}
}

// SegmentsBackward yields each name from the last to the first.
func (p *Path) SegmentsBackward() iter.Seq[*Path] {
	return func(yield func(*Path) bool) {
		names := p.names()
		for i := len(names) - 1; i >= 0; i-- {
			if !yield(p.relative(names[i])) {
				return
			}
		}
	}
}

// Equal reports whether both paths belong to the same handle and have the
// same absolute form.
func (p *Path) Equal(other *Path) bool {
	if other == nil || p.fs != other.fs {
		return false
	}
	return p.ToAbsolute().raw == other.ToAbsolute().raw
}

// Compare orders paths by their absolute form. Paths of different file
// systems cannot be compared.
func (p *Path) Compare(other *Path) (int, error) {
	if other == nil || p.fs != other.fs {
		return 0, argError("compare", p.String(), "path belongs to a different file system")
	}
	return strings.Compare(p.ToAbsolute().String(), other.ToAbsolute().String()), nil
}

// URI returns the absolute URI of the path.
func (p *Path) URI() *url.URL {
	u := p.fs.URI()
	u.Path = p.ToAbsolute().raw
	return u
}

// String returns the path as given, prefixed with scheme and authority when
// it is qualified.
func (p *Path) String() string {
	if p.qualified {
		return p.fs.prefix + p.raw
	}
	return p.raw
}

// backendPath returns the clean absolute path handed to the session.
func (p *Path) backendPath() string {
	return path.Clean("/" + p.raw)
}
