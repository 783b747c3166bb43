package hdfs

import (
	"context"
	"net/url"
	"strings"

	"github.com/gobeaver/hdfskit"
)

func init() {
	hdfskit.RegisterDriver("hdfs", func(ctx context.Context, uri *url.URL, cfg *hdfskit.Config) (hdfskit.Session, error) {
		return New(uri, configFromURI(uri, cfg))
	})
}

// configFromURI takes the namenode from the URI authority and the user from
// the URI user info, falling back to hadoop.user.name. The groups query
// lists the groups of that user.
func configFromURI(uri *url.URL, cfg *hdfskit.Config) Config {
	hc := Config{
		User:     cfg.User,
		PageSize: cfg.ListingPageSize,
	}
	if addr := addressOf(uri); addr != "" {
		hc.Addresses = []string{addr}
	}
	if uri.User != nil && uri.User.Username() != "" {
		hc.User = uri.User.Username()
	}
	if v := uri.Query().Get("groups"); v != "" {
		hc.Groups = strings.Split(v, ",")
	}
	return hc
}
