package hdfskit_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/gobeaver/hdfskit"
)

func BenchmarkProvider(b *testing.B) {
	content := strings.Repeat("Hello, World! ", 100)

	envs := map[string]map[string]any{
		"default":      nil,
		"small_buffer": {"dfs.stream-buffer-size": 64},
	}

	for name, env := range envs {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			pr := hdfskit.NewProvider(hdfskit.WithConfig(hdfskit.DefaultConfig()))
			fs, err := pr.NewFileSystem(ctx, "mem://bench", env)
			if err != nil {
				b.Fatalf("Failed to open file system: %v", err)
			}
			defer fs.Close()

			p, err := fs.GetPath("/bench.txt")
			if err != nil {
				b.Fatalf("Failed to build path: %v", err)
			}

			b.Run("write", func(b *testing.B) {
				for b.Loop() {
					ch, err := pr.NewByteChannel(ctx, p, hdfskit.OpenWrite|hdfskit.OpenCreate)
					if err != nil {
						b.Fatalf("Open failed: %v", err)
					}
					if _, err := io.WriteString(ch, content); err != nil {
						b.Fatalf("Write failed: %v", err)
					}
					ch.Close()
				}
			})

			b.Run("read", func(b *testing.B) {
				for b.Loop() {
					ch, err := pr.NewByteChannel(ctx, p, hdfskit.OpenRead)
					if err != nil {
						b.Fatalf("Open failed: %v", err)
					}
					if _, err := io.Copy(io.Discard, ch); err != nil {
						b.Fatalf("Read failed: %v", err)
					}
					ch.Close()
				}
			})

			b.Run("exists", func(b *testing.B) {
				for b.Loop() {
					if _, err := pr.Exists(ctx, p); err != nil {
						b.Fatalf("Exists failed: %v", err)
					}
				}
			})

			b.Run("attributes", func(b *testing.B) {
				for b.Loop() {
					if _, err := pr.ReadAttributeMap(ctx, p, "hdfs:*"); err != nil {
						b.Fatalf("ReadAttributeMap failed: %v", err)
					}
				}
			})
		})
	}
}

func BenchmarkConfigMerge(b *testing.B) {
	base := hdfskit.DefaultConfig()
	env := map[string]any{
		"dfs.blocksize":             "67108864",
		"dfs.replication":           2,
		"fs.permissions.umask-mode": "027",
	}

	for b.Loop() {
		if _, err := base.Merge(env); err != nil {
			b.Fatalf("Merge failed: %v", err)
		}
	}
}

func BenchmarkPathResolve(b *testing.B) {
	pr := hdfskit.NewProvider(hdfskit.WithConfig(hdfskit.DefaultConfig()))
	fs, err := pr.NewFileSystem(context.Background(), "mem://paths", nil)
	if err != nil {
		b.Fatalf("Failed to open file system: %v", err)
	}
	defer fs.Close()

	base, _ := fs.GetPath("/warehouse/db")
	for b.Loop() {
		p, _ := base.ResolveString("table/part-0000.parquet")
		_ = p.Normalize().String()
	}
}
