package hdfskit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gobeaver/hdfskit"
)

func setupCopy(t *testing.T, pr *hdfskit.Provider, uri string) (*hdfskit.FileSystem, *hdfskit.Path) {
	t.Helper()
	ctx := context.Background()
	fs := openFS(t, pr, uri, nil)
	for _, dir := range []string{"/src", "/dst"} {
		if err := pr.CreateDirectory(ctx, mustPath(t, fs, dir)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	src := mustPath(t, fs, "/src/a.csv")
	writeFile(t, pr, src, "id,name\n1,a\n")
	return fs, src
}

func TestCopy(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		name string
		uri  string
		opts hdfskit.CopyOption
	}{
		{"stream", "mem://copy", 0},
		{"bulk", "mem://copy", hdfskit.CopyBulkTransfer},
		{"bulk unsupported", "mem://copy?bulk=false", hdfskit.CopyBulkTransfer},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pr := newProvider()
			fs, src := setupCopy(t, pr, tt.uri)
			dst := mustPath(t, fs, "/dst/b.csv")

			if err := pr.Copy(ctx, src, dst, tt.opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := readFile(t, pr, dst); got != "id,name\n1,a\n" {
				t.Errorf("unexpected content %q", got)
			}
			if got := readFile(t, pr, src); got != "id,name\n1,a\n" {
				t.Errorf("expected source to be kept, got %q", got)
			}

			ds, err := pr.NewDirectoryStream(ctx, mustPath(t, fs, "/dst"), nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer ds.Close()
			if names := listNames(t, ds); len(names) != 1 || names[0] != "b.csv" {
				t.Errorf("expected only b.csv in target directory, got %v", names)
			}
		})
	}
}

func TestCopyExisting(t *testing.T) {
	ctx := context.Background()

	for _, bulk := range []hdfskit.CopyOption{0, hdfskit.CopyBulkTransfer} {
		pr := newProvider()
		fs, src := setupCopy(t, pr, "mem://copy")
		dst := mustPath(t, fs, "/dst/b.csv")
		writeFile(t, pr, dst, "old")

		err := pr.Copy(ctx, src, dst, bulk)
		if !hdfskit.IsExist(err) {
			t.Errorf("expected exist, got %v", err)
		}
		if got := readFile(t, pr, dst); got != "old" {
			t.Errorf("expected target to be untouched, got %q", got)
		}

		if err := pr.Copy(ctx, src, dst, bulk|hdfskit.CopyReplaceExisting); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := readFile(t, pr, dst); got != "id,name\n1,a\n" {
			t.Errorf("expected replaced content, got %q", got)
		}
	}
}

func TestCopyAttributes(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs := openFS(t, pr, "mem://copy", nil)
	src := mustPath(t, fs, "/src")
	writeFile(t, pr, src, "data",
		hdfskit.PermissionsAttribute(0o600),
		hdfskit.BlockSizeAttribute(4096),
		hdfskit.ReplicationAttribute(2),
	)
	mtime := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := pr.SetAttribute(ctx, src, "lastModifiedTime", mtime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dst := mustPath(t, fs, "/dst")
	if err := pr.Copy(ctx, src, dst, hdfskit.CopyAttributes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := pr.ReadHadoopAttributes(ctx, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Permissions != 0o600 || a.BlockSize != 4096 || a.Replication != 2 {
		t.Errorf("expected copied attributes, got %o/%d/%d", a.Permissions, a.BlockSize, a.Replication)
	}
	if !a.LastModifiedTime.Equal(mtime) {
		t.Errorf("expected mtime %v, got %v", mtime, a.LastModifiedTime)
	}

	plain := mustPath(t, fs, "/plain")
	if err := pr.Copy(ctx, src, plain, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := pr.ReadHadoopAttributes(ctx, plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Permissions != 0o644 || b.Replication != 3 {
		t.Errorf("expected default attributes, got %o/%d", b.Permissions, b.Replication)
	}
}

func TestCopyAcrossFileSystems(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	_, src := setupCopy(t, pr, "mem://left")
	right := openFS(t, pr, "mem://right", nil)
	dst := mustPath(t, right, "/copied.csv")

	if err := pr.Copy(ctx, src, dst, hdfskit.CopyBulkTransfer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, pr, dst); got != "id,name\n1,a\n" {
		t.Errorf("unexpected content %q", got)
	}

	if err := pr.Move(ctx, src, mustPath(t, right, "/moved.csv"), 0); !errors.Is(err, hdfskit.ErrProviderMismatch) {
		t.Errorf("expected provider mismatch, got %v", err)
	}
	if ok, _ := pr.Exists(ctx, src); !ok {
		t.Error("expected source to survive a failed move")
	}

	other := newProvider()
	foreign := openFS(t, other, "mem://left", nil)
	if err := pr.Move(ctx, src, mustPath(t, foreign, "/x"), 0); !errors.Is(err, hdfskit.ErrProviderMismatch) {
		t.Errorf("expected provider mismatch, got %v", err)
	}
	if err := pr.Copy(ctx, src, mustPath(t, foreign, "/x"), 0); !hdfskit.IsInvalidArgument(err) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestCopyMissingSource(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs := openFS(t, pr, "mem://copy", nil)
	if err := pr.Copy(ctx, mustPath(t, fs, "/missing"), mustPath(t, fs, "/dst"), 0); !hdfskit.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestCopyBulkFailureRemovesStaging(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs, _ := setupCopy(t, pr, "mem://copy")

	err := pr.Copy(ctx, mustPath(t, fs, "/src/missing"), mustPath(t, fs, "/dst/b.csv"), hdfskit.CopyBulkTransfer)
	if !hdfskit.IsNotExist(err) {
		t.Fatalf("expected not exist, got %v", err)
	}

	ds, err := pr.NewDirectoryStream(ctx, mustPath(t, fs, "/dst"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ds.Close()
	if names := listNames(t, ds); len(names) != 0 {
		t.Errorf("expected empty target directory, got %v", names)
	}
}

func TestCopyOntoItself(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		name string
		opts hdfskit.CopyOption
	}{
		{"replace", hdfskit.CopyReplaceExisting},
		{"replace bulk", hdfskit.CopyReplaceExisting | hdfskit.CopyBulkTransfer},
		{"no options", 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pr := newProvider()
			fs, src := setupCopy(t, pr, "mem://copy")

			if err := pr.Copy(ctx, src, mustPath(t, fs, "/src/../src/a.csv"), tt.opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := readFile(t, pr, src); got != "id,name\n1,a\n" {
				t.Errorf("expected source to be kept, got %q", got)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		pr := newProvider()
		fs := openFS(t, pr, "mem://copy", nil)
		p := mustPath(t, fs, "/missing")
		if err := pr.Copy(ctx, p, p, hdfskit.CopyReplaceExisting); !hdfskit.IsNotExist(err) {
			t.Errorf("expected not exist, got %v", err)
		}
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs, src := setupCopy(t, pr, "mem://move")
	dst := mustPath(t, fs, "/dst/a.csv")

	if err := pr.Move(ctx, src, dst, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := pr.Exists(ctx, src); ok {
		t.Error("expected source to be gone")
	}
	if got := readFile(t, pr, dst); got != "id,name\n1,a\n" {
		t.Errorf("unexpected content %q", got)
	}

	other := mustPath(t, fs, "/src/other.csv")
	writeFile(t, pr, other, "other")
	if err := pr.Move(ctx, other, dst, 0); !hdfskit.IsExist(err) {
		t.Errorf("expected exist, got %v", err)
	}
	if err := pr.Move(ctx, other, dst, hdfskit.CopyReplaceExisting); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, pr, dst); got != "other" {
		t.Errorf("expected replaced content, got %q", got)
	}

	if err := pr.Delete(ctx, dst, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pr.Move(ctx, dst, other, 0); !hdfskit.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}
