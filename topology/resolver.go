// Package topology implements spec §4.7: resolving a configured server into
// its concrete set of Redis nodes and deployment type.
package topology

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/bigtree-zedis/zedis-core/connfactory"
	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

// Resolver discovers topology by opening a probe connection through C7.
type Resolver struct {
	factory *connfactory.Factory
}

// NewResolver builds a Resolver backed by the given connection factory.
func NewResolver(factory *connfactory.Factory) *Resolver {
	return &Resolver{factory: factory}
}

// Resolve implements spec §4.7's protocol: ROLE, then INFO cluster or
// SENTINEL MASTERS as appropriate.
func (r *Resolver) Resolve(ctx context.Context, cfg model.ServerConfig) ([]model.RedisNode, model.ServerType, error) {
	client, cfg, err := r.connect(ctx, cfg)
	if err != nil {
		return nil, "", err
	}

	reply, err := client.Do(ctx, "ROLE").Result()
	if err != nil {
		return nil, "", errs.Wrap(errs.KindRedis, err, "issuing ROLE")
	}
	if fields, ok := reply.([]interface{}); ok && len(fields) > 0 {
		if kind, ok := fields[0].(string); ok && kind == "sentinel" {
			nodes, err := r.resolveSentinel(ctx, client, cfg)
			return nodes, model.ServerSentinel, err
		}
	}

	info, err := client.Info(ctx, "cluster").Result()
	if err != nil {
		return nil, "", errs.Wrap(errs.KindRedis, err, "issuing INFO cluster")
	}
	if strings.Contains(info, "cluster_enabled:1") {
		nodes, err := r.resolveCluster(ctx, client, cfg)
		return nodes, model.ServerCluster, err
	}

	return []model.RedisNode{{Config: cfg, Role: model.RoleMaster}}, model.ServerStandalone, nil
}

// connect opens the db=0 probe connection, retrying once without a
// password since Sentinel often accepts unauthenticated connections.
func (r *Resolver) connect(ctx context.Context, cfg model.ServerConfig) (*redis.Client, model.ServerConfig, error) {
	client, err := r.factory.Get(ctx, cfg, 0)
	if err == nil {
		return client.(*redis.Client), cfg, nil
	}
	if cfg.Password == "" {
		return nil, cfg, err
	}

	noAuth := cfg
	noAuth.Password = ""
	retried, retryErr := r.factory.Get(ctx, noAuth, 0)
	if retryErr != nil {
		return nil, cfg, err
	}
	return retried.(*redis.Client), noAuth, nil
}

func (r *Resolver) resolveCluster(ctx context.Context, client *redis.Client, cfg model.ServerConfig) ([]model.RedisNode, error) {
	raw, err := client.ClusterNodes(ctx).Result()
	if err != nil {
		return nil, errs.Wrap(errs.KindRedis, err, "issuing CLUSTER NODES")
	}
	return parseClusterNodes(raw, cfg), nil
}

// parseClusterNodes parses CLUSTER NODES output per spec §4.7: each line is
// "id addr flags …"; malformed lines (e.g. a node mid-handshake) are
// skipped rather than failing the whole resolution.
func parseClusterNodes(raw string, base model.ServerConfig) []model.RedisNode {
	var nodes []model.RedisNode
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		addr, err := ParseAddress(fields[1])
		if err != nil {
			continue
		}

		node := base
		node.Host = addr.Host
		node.Port = addr.Port

		nodes = append(nodes, model.RedisNode{Config: node, Role: roleFromFlags(fields[2])})
	}
	return nodes
}

func roleFromFlags(flags string) model.NodeRole {
	switch {
	case strings.Contains(flags, "master"):
		return model.RoleMaster
	case strings.Contains(flags, "slave"):
		return model.RoleReplica
	case strings.Contains(flags, "fail"):
		return model.RoleFailed
	default:
		return model.RoleUnknown
	}
}

func (r *Resolver) resolveSentinel(ctx context.Context, client *redis.Client, cfg model.ServerConfig) ([]model.RedisNode, error) {
	reply, err := client.Do(ctx, "SENTINEL", "MASTERS").Result()
	if err != nil {
		return nil, errs.Wrap(errs.KindRedis, err, "issuing SENTINEL MASTERS")
	}
	records, _ := reply.([]interface{})
	return parseSentinelMasters(records, cfg)
}

// parseSentinelMasters implements spec §4.7's Sentinel branch: filter by a
// configured preferred master name, or fail if more than one distinct
// master name is present with none configured.
func parseSentinelMasters(records []interface{}, base model.ServerConfig) ([]model.RedisNode, error) {
	seenNames := map[string]bool{}
	var nodes []model.RedisNode

	for _, rec := range records {
		fields, ok := rec.([]interface{})
		if !ok {
			continue
		}
		kv := map[string]string{}
		for i := 0; i+1 < len(fields); i += 2 {
			k, _ := fields[i].(string)
			v, _ := fields[i+1].(string)
			kv[k] = v
		}
		name := kv["name"]
		if base.MasterName != "" && name != base.MasterName {
			continue
		}
		seenNames[name] = true

		node := base
		node.Host = kv["ip"]
		if port, err := strconv.Atoi(kv["port"]); err == nil {
			node.Port = port
		}
		nodes = append(nodes, model.RedisNode{Config: node, Role: model.RoleMaster, MasterName: name})
	}

	if base.MasterName == "" && len(seenNames) > 1 {
		names := make([]string, 0, len(seenNames))
		for name := range seenNames {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errs.Invalid("multiple sentinel master names found: %s; configure a preferred master name", strings.Join(names, ", "))
	}
	return nodes, nil
}
