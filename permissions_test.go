package hdfskit

import (
	"os"
	"testing"
)

func TestPermissionString(t *testing.T) {
	tests := []struct {
		mode os.FileMode
		want string
	}{
		{0o750, "rwxr-x---"},
		{0o644, "rw-r--r--"},
		{0, "---------"},
		{0o777 | os.ModeDir, "rwxrwxrwx"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := PermissionString(tt.mode); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if tt.mode&os.ModeDir == 0 {
				m, err := ParsePermissions(tt.want)
				if err != nil || m != tt.mode {
					t.Errorf("expected %o, got %o (%v)", tt.mode, m, err)
				}
			}
		})
	}

	for _, bad := range []string{"rwx", "rwxrwxrwz", "xwrxwrxwr"} {
		if _, err := ParsePermissions(bad); !IsInvalidArgument(err) {
			t.Errorf("expected invalid argument for %q, got %v", bad, err)
		}
	}
}

func TestToPermission(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  os.FileMode
	}{
		{"file mode", os.FileMode(0o640) | os.ModeDir, 0o640},
		{"symbolic", "rw-r-----", 0o640},
		{"octal string", "0640", 0o640},
		{"short octal", "755", 0o755},
		{"integer", 0o600, 0o600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toPermission(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %o, got %o", tt.want, got)
			}
		})
	}

	for _, bad := range []any{"rwxbad", "89", struct{}{}} {
		if _, err := toPermission(bad); !IsInvalidArgument(err) {
			t.Errorf("expected invalid argument for %v, got %v", bad, err)
		}
	}
}

func TestCheckModes(t *testing.T) {
	st := &FileStatus{Owner: "alice", Group: "staff", Permission: 0o640}

	tests := []struct {
		name   string
		user   string
		groups []string
		modes  []AccessMode
		ok     bool
	}{
		{"owner read write", "alice", nil, []AccessMode{AccessRead, AccessWrite}, true},
		{"owner execute", "alice", nil, []AccessMode{AccessExecute}, false},
		{"group read", "bob", []string{"staff"}, []AccessMode{AccessRead}, true},
		{"group write", "bob", []string{"staff"}, []AccessMode{AccessWrite}, false},
		{"other read", "carol", []string{"users"}, []AccessMode{AccessRead}, false},
		{"owner class wins over group", "alice", []string{"staff"}, []AccessMode{AccessWrite}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkModes(st, tt.user, tt.groups, tt.modes)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !IsPermission(err) {
				t.Errorf("expected permission error, got %v", err)
			}
		})
	}
}
