package hdfskit

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"
)

type failingCloseStream struct {
	*bytes.Reader
}

func (failingCloseStream) Close() error { return errors.New("connection reset while closing") }

type failingCloseSession struct {
	Session
	data []byte
}

func (s *failingCloseSession) Open(ctx context.Context, name string) (InputStream, error) {
	return failingCloseStream{bytes.NewReader(s.data)}, nil
}

func TestChecksumsCloseError(t *testing.T) {
	cfg := DefaultConfig()
	pr := NewProvider(WithConfig(cfg))
	fs := newFileSystem(pr, "K1", &url.URL{Scheme: "fake", Host: "h"}, &failingCloseSession{data: []byte("id,name\n")}, cfg)
	p := &Path{fs: fs, raw: "/a.csv"}

	sums, err := pr.Checksums(context.Background(), p, ChecksumSHA256)
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected io error, got %v", err)
	}
	if sums != nil {
		t.Errorf("expected no checksums, got %v", sums)
	}
}
