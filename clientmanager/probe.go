package clientmanager

import (
	"context"
	"strings"
	"sync"

	"github.com/coreos/go-semver/semver"
	"github.com/redis/go-redis/v9"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
	"github.com/bigtree-zedis/zedis-core/redisconn"
)

// detectAccessMode mirrors original_source's safe_check_user_readonly: ask
// ACL WHOAMI for the current user, then ACL DRYRUN them against a harmless
// SET to see whether writes are actually permitted. A NOPERM error, or any
// non-"OK" dry-run result, means the user can't write.
func detectAccessMode(ctx context.Context, conn *redisconn.Conn, cfg model.ServerConfig) (model.AccessMode, error) {
	readOnly, err := safeCheckUserReadOnly(ctx, conn)
	if err != nil {
		return "", err
	}
	switch {
	case readOnly:
		return model.AccessStrictReadOnly, nil
	case cfg.ReadOnly:
		return model.AccessSafeMode, nil
	default:
		return model.AccessReadWrite, nil
	}
}

func safeCheckUserReadOnly(ctx context.Context, conn *redisconn.Conn) (bool, error) {
	whoami, err := conn.Send(ctx, "ACL", "WHOAMI")
	if err != nil {
		return false, nil // can't determine; treat as not-readonly, matching the source's unwrap_or_default
	}
	user, _ := whoami.(string)
	if user == "" {
		return false, nil
	}

	result, err := conn.Send(ctx, "ACL", "DRYRUN", user, "SET", "zedis", "treexie")
	if err != nil {
		if errs.KindOf(err) == errs.KindRedis && strings.Contains(err.Error(), "NOPERM") {
			return true, nil
		}
		return false, nil
	}
	text, _ := result.(string)
	return text != "OK", nil
}

// detectVersion probes INFO server; for a cluster it queries the shards
// concurrently and keeps the first redis_version found, per spec §4.9.
func detectVersion(ctx context.Context, conn *redisconn.Conn, serverType model.ServerType) (model.Version, error) {
	zero := semver.Version{}

	if serverType != model.ServerCluster {
		raw, err := conn.Send(ctx, "INFO", "server")
		if err != nil {
			return zero, err
		}
		text, _ := raw.(string)
		return parseVersionFromInfo(text), nil
	}

	cluster, ok := conn.Client.(*redis.ClusterClient)
	if !ok {
		return zero, nil
	}

	var mu sync.Mutex
	var found model.Version
	_ = cluster.ForEachShard(ctx, func(ctx context.Context, shard *redis.Client) error {
		mu.Lock()
		done := found != (semver.Version{})
		mu.Unlock()
		if done {
			return nil
		}
		text, err := shard.Info(ctx, "server").Result()
		if err != nil {
			return nil
		}
		if v := parseVersionFromInfo(text); v != (semver.Version{}) {
			mu.Lock()
			if found == (semver.Version{}) {
				found = v
			}
			mu.Unlock()
		}
		return nil
	})
	return found, nil
}

func parseVersionFromInfo(info string) model.Version {
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, "redis_version:"); ok {
			parsed, err := semver.NewVersion(strings.TrimSpace(v))
			if err != nil {
				return semver.Version{}
			}
			return *parsed
		}
	}
	return semver.Version{}
}
