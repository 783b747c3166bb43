package hdfskit

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
)

// BasicView reads and updates the attributes every backend provides.
type BasicView interface {
	Name() string
	Path() *Path
	ReadBasic(ctx context.Context) (*BasicAttributes, error)
	ReadAttributeMap(ctx context.Context, names string) (map[string]any, error)
	// SetTimes updates the modification and access times. A nil time keeps
	// its current value; ctime is accepted and ignored.
	SetTimes(ctx context.Context, mtime, atime, ctime *time.Time) error
}

// PosixView adds ownership and permissions.
type PosixView interface {
	BasicView
	ReadPosix(ctx context.Context) (*PosixAttributes, error)
	Owner(ctx context.Context) (string, error)
	SetOwner(ctx context.Context, owner string) error
	SetGroup(ctx context.Context, group string) error
	SetPermissions(ctx context.Context, perm os.FileMode) error
}

// HadoopView adds block layout and replication.
type HadoopView interface {
	PosixView
	ReadHadoop(ctx context.Context) (*HadoopAttributes, error)
	SetReplication(ctx context.Context, replication int16) error
}

type basicView struct {
	path *Path
}

func (v *basicView) Name() string { return ViewBasic }

func (v *basicView) Path() *Path { return v.path }

// snapshot fetches a fresh status for every read.
func (v *basicView) snapshot(ctx context.Context) (*HadoopAttributes, error) {
	fs := v.path.fs
	if err := fs.ensureOpen("stat", v.path); err != nil {
		return nil, err
	}
	st, err := fs.session.GetFileStatus(ctx, v.path.backendPath())
	if err != nil {
		return nil, translate("stat", err, v.path)
	}
	return attributesOf(v.path, st), nil
}

func (v *basicView) ReadBasic(ctx context.Context) (*BasicAttributes, error) {
	a, err := v.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &a.BasicAttributes, nil
}

func (v *basicView) ReadAttributeMap(ctx context.Context, names string) (map[string]any, error) {
	return v.readMap(ctx, ViewBasic, names)
}

func (v *basicView) readMap(ctx context.Context, view, names string) (map[string]any, error) {
	a, err := v.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return selectFields(view, a, names), nil
}

func (v *basicView) SetTimes(ctx context.Context, mtime, atime, ctime *time.Time) error {
	if mtime == nil && atime == nil {
		return nil
	}
	if mtime == nil || atime == nil {
		a, err := v.snapshot(ctx)
		if err != nil {
			return err
		}
		if mtime == nil {
			mtime = &a.LastModifiedTime
		}
		if atime == nil {
			atime = &a.LastAccessTime
		}
	}
	return v.do(ctx, "settimes", func(s Session, name string) error {
		return s.SetTimes(ctx, name, *mtime, *atime)
	})
}

func (v *basicView) do(ctx context.Context, op string, fn func(s Session, name string) error) error {
	fs := v.path.fs
	if err := fs.ensureOpen(op, v.path); err != nil {
		return err
	}
	err := translate(op, fn(fs.session, v.path.backendPath()), v.path)
	fs.provider.metrics.observe(op, err)
	return err
}

type posixView struct {
	basicView
}

func (v *posixView) Name() string { return ViewPosix }

func (v *posixView) ReadPosix(ctx context.Context) (*PosixAttributes, error) {
	a, err := v.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &a.PosixAttributes, nil
}

func (v *posixView) ReadAttributeMap(ctx context.Context, names string) (map[string]any, error) {
	return v.readMap(ctx, ViewPosix, names)
}

func (v *posixView) Owner(ctx context.Context) (string, error) {
	a, err := v.snapshot(ctx)
	if err != nil {
		return "", err
	}
	return a.Owner, nil
}

func (v *posixView) SetOwner(ctx context.Context, owner string) error {
	if owner == "" {
		return argError("setowner", v.path.String(), "owner must not be empty")
	}
	return v.do(ctx, "setowner", func(s Session, name string) error {
		return s.SetOwner(ctx, name, owner, "")
	})
}

func (v *posixView) SetGroup(ctx context.Context, group string) error {
	if group == "" {
		return argError("setgroup", v.path.String(), "group must not be empty")
	}
	return v.do(ctx, "setgroup", func(s Session, name string) error {
		return s.SetOwner(ctx, name, "", group)
	})
}

func (v *posixView) SetPermissions(ctx context.Context, perm os.FileMode) error {
	return v.do(ctx, "setpermission", func(s Session, name string) error {
		return s.SetPermission(ctx, name, perm.Perm())
	})
}

type hadoopView struct {
	posixView
}

func (v *hadoopView) Name() string { return ViewHadoop }

func (v *hadoopView) ReadHadoop(ctx context.Context) (*HadoopAttributes, error) {
	return v.snapshot(ctx)
}

func (v *hadoopView) ReadAttributeMap(ctx context.Context, names string) (map[string]any, error) {
	return v.readMap(ctx, ViewHadoop, names)
}

func (v *hadoopView) SetReplication(ctx context.Context, replication int16) error {
	if replication < 1 {
		return argError("setreplication", v.path.String(), "replication must be positive, got %d", replication)
	}
	return v.do(ctx, "setreplication", func(s Session, name string) error {
		return s.SetReplication(ctx, name, replication)
	})
}

func newView(p *Path, view string) (BasicView, error) {
	if !p.fs.supportsView(view) {
		return nil, &PathError{Op: "view", Path: p.String(), Err: fmt.Errorf("%w: view %q", ErrNotSupported, view)}
	}
	b := basicView{path: p}
	switch view {
	case ViewBasic:
		return &b, nil
	case ViewPosix:
		return &posixView{basicView: b}, nil
	case ViewHadoop:
		return &hadoopView{posixView: posixView{basicView: b}}, nil
	}
	return nil, &PathError{Op: "view", Path: p.String(), Err: fmt.Errorf("%w: view %q", ErrNotSupported, view)}
}

// attrSetter updates one attribute through the narrowest view that owns it.
type attrSetter struct {
	view string
	set  func(ctx context.Context, v *hadoopView, value any) error
}

var viewRank = map[string]int{ViewBasic: 0, ViewPosix: 1, ViewHadoop: 2}

var attrSetters = map[string]attrSetter{
	AttrLastModifiedTime: {ViewBasic, func(ctx context.Context, v *hadoopView, value any) error {
		t, err := toTime(value)
		if err != nil {
			return err
		}
		return v.SetTimes(ctx, &t, nil, nil)
	}},
	AttrLastAccessTime: {ViewBasic, func(ctx context.Context, v *hadoopView, value any) error {
		t, err := toTime(value)
		if err != nil {
			return err
		}
		return v.SetTimes(ctx, nil, &t, nil)
	}},
	AttrCreationTime: {ViewBasic, func(ctx context.Context, v *hadoopView, value any) error {
		t, err := toTime(value)
		if err != nil {
			return err
		}
		return v.SetTimes(ctx, nil, nil, &t)
	}},
	AttrOwner: {ViewPosix, func(ctx context.Context, v *hadoopView, value any) error {
		s, err := cast.ToStringE(value)
		if err != nil {
			return fmt.Errorf("%w: owner %v", ErrInvalidArgument, value)
		}
		return v.SetOwner(ctx, s)
	}},
	AttrGroup: {ViewPosix, func(ctx context.Context, v *hadoopView, value any) error {
		s, err := cast.ToStringE(value)
		if err != nil {
			return fmt.Errorf("%w: group %v", ErrInvalidArgument, value)
		}
		return v.SetGroup(ctx, s)
	}},
	AttrPermissions: {ViewPosix, func(ctx context.Context, v *hadoopView, value any) error {
		perm, err := toPermission(value)
		if err != nil {
			return err
		}
		return v.SetPermissions(ctx, perm)
	}},
	AttrReplication: {ViewHadoop, func(ctx context.Context, v *hadoopView, value any) error {
		r, err := cast.ToInt16E(value)
		if err != nil {
			return fmt.Errorf("%w: replication %v", ErrInvalidArgument, value)
		}
		return v.SetReplication(ctx, r)
	}},
}

// setAttribute dispatches "view:name" to its setter. Names outside the
// view's table fail before any backend call.
func setAttribute(ctx context.Context, p *Path, attribute string, value any) error {
	view, name := splitAttribute(attribute)
	rank, known := viewRank[view]
	if !known {
		return &PathError{Op: "setattribute", Path: p.String(), Err: fmt.Errorf("%w: view %q", ErrNotSupported, view)}
	}
	setter, ok := attrSetters[name]
	if !ok || viewRank[setter.view] > rank {
		return argError("setattribute", p.String(), "attribute %q not supported", attribute)
	}
	if !p.fs.supportsView(setter.view) {
		return &PathError{Op: "setattribute", Path: p.String(), Err: fmt.Errorf("%w: view %q", ErrNotSupported, setter.view)}
	}
	if value == nil {
		return argError("setattribute", p.String(), "nil value for %q", attribute)
	}

	v := &hadoopView{posixView: posixView{basicView: basicView{path: p}}}
	err := setter.set(ctx, v, value)
	if err != nil && !isPathError(err) {
		return &PathError{Op: "setattribute", Path: p.String(), Err: err}
	}
	return err
}

func toTime(value any) (time.Time, error) {
	switch t := value.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	}
	t, err := cast.ToTimeE(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %v", ErrInvalidArgument, value)
	}
	return t, nil
}

func isPathError(err error) bool {
	_, ok := err.(*PathError)
	return ok
}
