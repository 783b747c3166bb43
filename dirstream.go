package hdfskit

import (
	"context"
	"errors"
	"io"
	"iter"
	"path"

	"github.com/gobwas/glob"
)

// Filter decides whether a directory entry is returned by a DirectoryStream
type Filter func(p *Path) (bool, error)

// AcceptAll accepts every entry
func AcceptAll(*Path) (bool, error) { return true, nil }

// GlobFilter accepts entries whose file name matches pattern
func GlobFilter(pattern string) (Filter, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, argError("glob", pattern, "%v", err)
	}
	return func(p *Path) (bool, error) {
		name := p.FileName()
		return name != nil && g.Match(name.String()), nil
	}, nil
}

// DirectoryStream enumerates one directory lazily. Pages are fetched from
// the backend on demand and filtered as they are consumed. A stream is
// single-pass and cannot be restarted.
type DirectoryStream struct {
	dir    *Path
	base   string
	it     StatusIterator
	filter Filter

	page     []*FileStatus
	done     bool
	closed   bool
	iterated bool
}

func newDirectoryStream(dir *Path, it StatusIterator, filter Filter) *DirectoryStream {
	if filter == nil {
		filter = AcceptAll
	}
	return &DirectoryStream{
		dir:    dir,
		base:   dir.backendPath(),
		it:     it,
		filter: filter,
	}
}

// Next returns the next accepted entry, or io.EOF when the listing is exhausted.
func (s *DirectoryStream) Next(ctx context.Context) (*Path, error) {
	for {
		if s.closed {
			return nil, &PathError{Op: "readdir", Path: s.dir.String(), Err: ErrClosed}
		}
		if len(s.page) == 0 {
			if s.done {
				return nil, io.EOF
			}
			if err := s.fetch(ctx); err != nil {
				return nil, err
			}
			continue
		}

		st := s.page[0]
		s.page = s.page[1:]

		entry := &Path{fs: s.dir.fs, qualified: true, raw: path.Join(s.base, st.Name())}
		ok, err := s.filter(entry)
		if err != nil {
			if isPathError(err) {
				return nil, err
			}
			return nil, &PathError{Op: "filter", Path: entry.String(), Err: err}
		}
		if ok {
			return entry, nil
		}
	}
}

func (s *DirectoryStream) fetch(ctx context.Context) error {
	page, err := s.it.NextPage(ctx)
	switch {
	case errors.Is(err, io.EOF):
		s.done = true
	case err != nil:
		return translate("readdir", err, s.dir)
	}
	s.page = page
	return nil
}

// All returns an iterator over the remaining entries. It may be obtained
// once per stream.
func (s *DirectoryStream) All(ctx context.Context) iter.Seq2[*Path, error] {
	return func(yield func(*Path, error) bool) {
		if s.iterated {
			yield(nil, argError("readdir", s.dir.String(), "iterator already obtained"))
			return
		}
		s.iterated = true
		for {
			p, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the backend listing. Further calls to Next fail.
func (s *DirectoryStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.it.Close(); err != nil {
		return translate("readdir", err, s.dir)
	}
	return nil
}
