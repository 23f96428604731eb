package connfactory

import (
	"net/url"
	"strconv"

	"github.com/bigtree-zedis/zedis-core/model"
)

// BuildURL renders cfg as a redis(s):// connection string per spec §4.6.
// It is informational only — the actual transport is always built directly
// through go-redis's Options, never by parsing this string back.
func BuildURL(cfg model.ServerConfig) string {
	scheme := "redis"
	if cfg.TLS.Enabled {
		scheme = "rediss"
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   cfg.Host + ":" + portString(cfg.Port),
	}
	if cfg.Username != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	if cfg.TLS.Enabled && cfg.TLS.Insecure {
		u.Fragment = "insecure"
	}
	return u.String()
}

func portString(port int) string {
	if port == 0 {
		port = 6379
	}
	return strconv.Itoa(port)
}
