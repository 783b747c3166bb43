package memory

import (
	"context"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/gobeaver/hdfskit"
)

func init() {
	hdfskit.RegisterDriver("mem", func(ctx context.Context, uri *url.URL, cfg *hdfskit.Config) (hdfskit.Session, error) {
		mc, bulk, err := configFromURI(uri, cfg)
		if err != nil {
			return nil, err
		}
		if bulk {
			return NewBulk(uri, mc), nil
		}
		return New(uri, mc), nil
	})
}

// configFromURI builds the adapter configuration. The user comes from the
// URI user info or hadoop.user.name; the query may set groups, views,
// direct (direct reads) and bulk (server-side copy, on by default).
func configFromURI(uri *url.URL, cfg *hdfskit.Config) (Config, bool, error) {
	mc := Config{
		User:     cfg.User,
		Capacity: cfg.MemCapacity,
		PageSize: cfg.ListingPageSize,
	}
	if uri.User != nil && uri.User.Username() != "" {
		mc.User = uri.User.Username()
	}

	q := uri.Query()
	if v := q.Get("groups"); v != "" {
		mc.Groups = strings.Split(v, ",")
	}
	if v := q.Get("views"); v != "" {
		mc.Views = strings.Split(v, ",")
	}

	var err error
	if v := q.Get("direct"); v != "" {
		if mc.DirectRead, err = cast.ToBoolE(v); err != nil {
			return Config{}, false, &hdfskit.PathError{Op: "open", Path: uri.String(), Err: hdfskit.ErrInvalidArgument}
		}
	}
	bulk := true
	if v := q.Get("bulk"); v != "" {
		if bulk, err = cast.ToBoolE(v); err != nil {
			return Config{}, false, &hdfskit.PathError{Op: "open", Path: uri.String(), Err: hdfskit.ErrInvalidArgument}
		}
	}
	return mc, bulk, nil
}
