package hdfskit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gobeaver/hdfskit"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs, err := pr.NewFileSystem(ctx, "mem://store", map[string]any{"mem.capacity": 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := mustPath(t, fs, "/f")
	writeFile(t, pr, p, strings.Repeat("x", 100))

	store, err := pr.GetFileStore(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Type() != "mem" {
		t.Errorf("expected type mem, got %s", store.Type())
	}
	if store.Name() != "mem://store" {
		t.Errorf("expected name mem://store, got %s", store.Name())
	}
	if store.IsReadOnly() {
		t.Error("expected writable store")
	}
	if store.FileSystem() != fs {
		t.Error("expected store to belong to its file system")
	}
	if !store.SupportsAttributeView(hdfskit.ViewHadoop) || store.SupportsAttributeView("acl") {
		t.Error("unexpected view support")
	}

	if total, _ := store.TotalSpace(ctx); total != 1000 {
		t.Errorf("expected total 1000, got %d", total)
	}
	if usable, _ := store.UsableSpace(ctx); usable != 900 {
		t.Errorf("expected usable 900, got %d", usable)
	}
	if free, _ := store.UnallocatedSpace(ctx); free != 900 {
		t.Errorf("expected unallocated 900, got %d", free)
	}

	t.Run("attributes", func(t *testing.T) {
		tests := []struct {
			attribute string
			want      int64
		}{
			{"mem:totalSpace", 1000},
			{"mem:usableSpace", 900},
			{"mem:unallocatedSpace", 900},
		}
		for _, tt := range tests {
			got, err := store.Attribute(ctx, tt.attribute)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s: expected %d, got %d", tt.attribute, tt.want, got)
			}
		}
		for _, attribute := range []string{"mem:bogus", "hdfs:totalSpace", "totalSpace"} {
			if _, err := store.Attribute(ctx, attribute); !hdfskit.IsNotSupported(err) {
				t.Errorf("%s: expected not supported, got %v", attribute, err)
			}
		}
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		ch, err := pr.NewByteChannel(ctx, mustPath(t, fs, "/big"), hdfskit.OpenWrite)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer ch.Close()
		if _, err := ch.Write(make([]byte, 1000)); !errors.Is(err, hdfskit.ErrIO) {
			t.Errorf("expected i/o error, got %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fs.IsOpen() {
			t.Error("expected file system to be closed")
		}
		if _, err := store.TotalSpace(ctx); !errors.Is(err, hdfskit.ErrClosed) {
			t.Errorf("expected closed, got %v", err)
		}
	})
}
