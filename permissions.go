package hdfskit

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cast"
)

// AccessMode is a permission checked by CheckAccess
type AccessMode uint8

const (
	AccessExecute AccessMode = 1 << iota
	AccessWrite
	AccessRead
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	case AccessExecute:
		return "EXECUTE"
	}
	return fmt.Sprintf("AccessMode(%d)", uint8(m))
}

const permChars = "rwxrwxrwx"

// PermissionString renders the nine permission bits as "rwxr-x---"
func PermissionString(m os.FileMode) string {
	buf := []byte("---------")
	for i := range 9 {
		if m&(1<<uint(8-i)) != 0 {
			buf[i] = permChars[i]
		}
	}
	return string(buf)
}

// ParsePermissions parses the "rwxr-x---" form
func ParsePermissions(s string) (os.FileMode, error) {
	if len(s) != 9 {
		return 0, fmt.Errorf("%w: invalid permission string %q", ErrInvalidArgument, s)
	}
	var m os.FileMode
	for i := range 9 {
		switch s[i] {
		case permChars[i]:
			m |= 1 << uint(8-i)
		case '-':
		default:
			return 0, fmt.Errorf("%w: invalid permission string %q", ErrInvalidArgument, s)
		}
	}
	return m, nil
}

// toPermission coerces an attribute value into permission bits. Strings may
// use either the "rwxr-x---" or the octal form.
func toPermission(v any) (os.FileMode, error) {
	switch t := v.(type) {
	case os.FileMode:
		return t.Perm(), nil
	case string:
		if len(t) == 9 {
			return ParsePermissions(t)
		}
		n, err := strconv.ParseUint(t, 8, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid permissions %q", ErrInvalidArgument, t)
		}
		return os.FileMode(n).Perm(), nil
	}
	n, err := cast.ToUint32E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid permissions %v", ErrInvalidArgument, v)
	}
	return os.FileMode(n).Perm(), nil
}

// permissionClass selects the owner, group or other bits of perm for user.
func permissionClass(st *FileStatus, user string, groups []string) os.FileMode {
	perm := st.Permission.Perm()
	switch {
	case st.Owner == user:
		return (perm >> 6) & 7
	case slices.Contains(groups, st.Group):
		return (perm >> 3) & 7
	}
	return perm & 7
}

func checkModes(st *FileStatus, user string, groups []string, modes []AccessMode) error {
	class := permissionClass(st, user, groups)
	for _, m := range modes {
		if class&os.FileMode(m) == 0 {
			return fmt.Errorf("%w: %s access denied for %s", ErrPermission, m, user)
		}
	}
	return nil
}
