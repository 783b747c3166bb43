package hdfskit_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"

	"github.com/gobeaver/hdfskit"
)

func TestChecksum(t *testing.T) {
	ctx := context.Background()
	pr := newProvider()
	fs := openFS(t, pr, "mem://sums", map[string]any{"dfs.stream-buffer-size": 2})
	p := mustPath(t, fs, "/hello")
	writeFile(t, pr, p, "hello")

	tests := []struct {
		algorithm hdfskit.ChecksumAlgorithm
		want      string
	}{
		{hdfskit.ChecksumMD5, "5d41402abc4b2a76b9719d911017c592"},
		{hdfskit.ChecksumSHA1, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{hdfskit.ChecksumSHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{hdfskit.ChecksumCRC32, "3610a686"},
		{hdfskit.ChecksumXXHash, fmt.Sprintf("%016x", xxhash.Sum64String("hello"))},
	}
	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			got, err := pr.Checksum(ctx, p, tt.algorithm)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("several at once", func(t *testing.T) {
		sums, err := pr.Checksums(ctx, p, hdfskit.ChecksumMD5, hdfskit.ChecksumSHA512)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sums) != 2 || sums[hdfskit.ChecksumMD5] != tests[0].want {
			t.Errorf("unexpected sums %v", sums)
		}
		if len(sums[hdfskit.ChecksumSHA512]) != 128 {
			t.Errorf("expected 128 hex digits, got %d", len(sums[hdfskit.ChecksumSHA512]))
		}
	})

	t.Run("verify", func(t *testing.T) {
		ok, err := pr.VerifyChecksum(ctx, p, tests[0].want, hdfskit.ChecksumMD5)
		if err != nil || !ok {
			t.Errorf("expected match, got %v (%v)", ok, err)
		}
		ok, err = pr.VerifyChecksum(ctx, p, strings.Repeat("0", 32), hdfskit.ChecksumMD5)
		if err != nil || ok {
			t.Errorf("expected mismatch, got %v (%v)", ok, err)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := pr.Checksum(ctx, p, "whirlpool"); !hdfskit.IsNotSupported(err) {
			t.Errorf("expected not supported, got %v", err)
		}
		if _, err := pr.Checksums(ctx, p); !hdfskit.IsInvalidArgument(err) {
			t.Errorf("expected invalid argument, got %v", err)
		}
		if _, err := pr.Checksum(ctx, mustPath(t, fs, "/missing"), hdfskit.ChecksumMD5); !hdfskit.IsNotExist(err) {
			t.Errorf("expected not exist, got %v", err)
		}
	})
}
