package hdfs

import (
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gobeaver/hdfskit"
)

func TestAddressOf(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"hdfs://namenode", "namenode:8020"},
		{"hdfs://namenode:9000", "namenode:9000"},
		{"hdfs://alice@namenode:9000/data", "namenode:9000"},
		{"hdfs:///data", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			u, err := url.Parse(tt.uri)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := addressOf(u); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfigFromURI(t *testing.T) {
	cfg := hdfskit.DefaultConfig()
	cfg.User = "etl"
	cfg.ListingPageSize = 50

	t.Run("user info wins", func(t *testing.T) {
		u, _ := url.Parse("hdfs://alice@nn:8020")
		hc := configFromURI(u, cfg)
		if hc.User != "alice" {
			t.Errorf("expected alice, got %s", hc.User)
		}
		if len(hc.Addresses) != 1 || hc.Addresses[0] != "nn:8020" {
			t.Errorf("unexpected addresses %v", hc.Addresses)
		}
		if hc.PageSize != 50 {
			t.Errorf("expected page size 50, got %d", hc.PageSize)
		}
	})

	t.Run("configured user", func(t *testing.T) {
		u, _ := url.Parse("hdfs://nn")
		if hc := configFromURI(u, cfg); hc.User != "etl" {
			t.Errorf("expected etl, got %s", hc.User)
		}
	})

	t.Run("groups", func(t *testing.T) {
		u, _ := url.Parse("hdfs://alice@nn?groups=dev,ops")
		hc := configFromURI(u, cfg)
		if len(hc.Groups) != 2 || hc.Groups[0] != "dev" || hc.Groups[1] != "ops" {
			t.Errorf("unexpected groups %v", hc.Groups)
		}

		a := &Adapter{cfg: hc}
		groups := a.groups()
		groups[0] = "root"
		if got := a.groups(); got[0] != "dev" {
			t.Errorf("expected groups to be copied, got %v", got)
		}
	})

	t.Run("no groups", func(t *testing.T) {
		u, _ := url.Parse("hdfs://alice@nn")
		if hc := configFromURI(u, cfg); hc.Groups != nil {
			t.Errorf("expected no groups, got %v", hc.Groups)
		}
	})
}

type fakeInfo struct {
	name string
	size int64
	mode os.FileMode
	sys  any
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() os.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Unix(100, 0) }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() any           { return f.sys }

type fakeProto struct{}

func (fakeProto) GetBlockReplication() uint32 { return 2 }
func (fakeProto) GetBlocksize() uint64        { return 1 << 20 }
func (fakeProto) GetFileId() uint64           { return 16390 }

func TestToStatus(t *testing.T) {
	t.Run("reads namenode fields", func(t *testing.T) {
		st := toStatus("/data/a.csv", fakeInfo{name: "a.csv", size: 42, mode: 0o640, sys: fakeProto{}})
		if !st.IsFile || st.IsDir {
			t.Error("expected regular file")
		}
		if st.Length != 42 || st.Permission != 0o640 {
			t.Errorf("unexpected status %+v", st)
		}
		if st.Replication != 2 || st.BlockSize != 1<<20 || st.FileID != 16390 {
			t.Errorf("unexpected namenode fields %+v", st)
		}
		if st.Name() != "a.csv" {
			t.Errorf("expected a.csv, got %s", st.Name())
		}
	})

	t.Run("directory without sys", func(t *testing.T) {
		st := toStatus("/data", fakeInfo{name: "data", mode: os.ModeDir | 0o755})
		if !st.IsDir || st.IsFile {
			t.Error("expected directory")
		}
		if st.Replication != 0 || st.FileID != 0 {
			t.Errorf("expected zero namenode fields, got %+v", st)
		}
	})
}
