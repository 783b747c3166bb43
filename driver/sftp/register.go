package sftp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/gobeaver/hdfskit"
)

func init() {
	hdfskit.RegisterDriver("sftp", func(ctx context.Context, uri *url.URL, cfg *hdfskit.Config) (hdfskit.Session, error) {
		sftpConfig, err := configFromURI(uri, cfg)
		if err != nil {
			return nil, err
		}

		if cfg.SFTPPrivateKey != "" {
			keyData, err := os.ReadFile(cfg.SFTPPrivateKey)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			sftpConfig.PrivateKey = keyData
		}

		return New(uri, sftpConfig)
	})
}

// configFromURI reads host, port and credentials from the URI authority.
// Configured credentials fill what the URI leaves out; the known_hosts
// query parameter enables host key verification.
func configFromURI(uri *url.URL, cfg *hdfskit.Config) (Config, error) {
	if uri.Hostname() == "" {
		return Config{}, fmt.Errorf("%w: SFTP host is required", hdfskit.ErrInvalidArgument)
	}

	sc := Config{
		Host:       uri.Hostname(),
		Username:   cfg.User,
		Password:   cfg.SFTPPassword,
		KnownHosts: uri.Query().Get("known_hosts"),
		PageSize:   cfg.ListingPageSize,
	}
	if p := uri.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("%w: bad port %q", hdfskit.ErrInvalidArgument, p)
		}
		sc.Port = port
	}
	if uri.User != nil {
		if name := uri.User.Username(); name != "" {
			sc.Username = name
		}
		if pw, ok := uri.User.Password(); ok {
			sc.Password = pw
		}
	}
	return sc, nil
}
