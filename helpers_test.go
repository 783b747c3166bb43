package hdfskit_test

import (
	"context"
	"io"
	"testing"

	"github.com/gobeaver/hdfskit"
	_ "github.com/gobeaver/hdfskit/driver/memory"
)

func newProvider(opts ...hdfskit.Option) *hdfskit.Provider {
	return hdfskit.NewProvider(append([]hdfskit.Option{hdfskit.WithConfig(hdfskit.DefaultConfig())}, opts...)...)
}

func openFS(t *testing.T, pr *hdfskit.Provider, uri string, env map[string]any) *hdfskit.FileSystem {
	t.Helper()
	fs, err := pr.NewFileSystem(context.Background(), uri, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func mustPath(t *testing.T, fs *hdfskit.FileSystem, first string, more ...string) *hdfskit.Path {
	t.Helper()
	p, err := fs.GetPath(first, more...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func writeFile(t *testing.T, pr *hdfskit.Provider, p *hdfskit.Path, content string, attrs ...hdfskit.FileAttribute) {
	t.Helper()
	ch, err := pr.NewByteChannel(context.Background(), p, hdfskit.OpenWrite|hdfskit.OpenCreate, attrs...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ch.Write([]byte(content)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func readFile(t *testing.T, pr *hdfskit.Provider, p *hdfskit.Path) string {
	t.Helper()
	ch, err := pr.NewByteChannel(context.Background(), p, hdfskit.OpenRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ch.Close()
	data, err := io.ReadAll(ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(data)
}
