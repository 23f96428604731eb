// Package redisconn implements spec §4.8: a single connection-handle type
// over go-redis's UniversalClient (itself already a sum type of Client and
// ClusterClient, transparently following MOVED/ASK), plus the
// artificial-delay hook used for UI testing.
package redisconn

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigtree-zedis/zedis-core/errs"
)

// Kind distinguishes the three connection variants of spec §4.8, for
// logging and for clientmanager's SSH-cluster re-route bookkeeping (spec
// §9); command dispatch itself never branches on it.
type Kind string

const (
	KindSingle     Kind = "single"
	KindCluster    Kind = "cluster"
	KindSSHCluster Kind = "ssh_cluster"
)

// Conn is the unified connection handle of spec §4.8.
type Conn struct {
	Kind   Kind
	Client redis.UniversalClient
}

// New wraps an already-constructed go-redis client.
func New(kind Kind, client redis.UniversalClient) *Conn {
	return &Conn{Kind: kind, Client: client}
}

// Close releases the underlying client.
func (c *Conn) Close() error {
	return c.Client.Close()
}

// Send issues one command and returns its reply, per spec §4.8.
func (c *Conn) Send(ctx context.Context, args ...interface{}) (interface{}, error) {
	applyArtificialDelay(ctx)
	reply, err := c.Client.Do(ctx, args...).Result()
	if err != nil {
		return nil, errs.Wrap(errs.KindRedis, err, "sending command")
	}
	return reply, nil
}

// SendPipeline batches len(pipeline) commands, returning results offset
// through offset+count (spec §4.8's "send_pipeline(pipeline, offset,
// count)"). count <= 0 means "to the end".
func (c *Conn) SendPipeline(ctx context.Context, pipeline [][]interface{}, offset, count int) ([]interface{}, error) {
	applyArtificialDelay(ctx)

	pipe := c.Client.Pipeline()
	cmds := make([]*redis.Cmd, len(pipeline))
	for i, args := range pipeline {
		cmds[i] = pipe.Do(ctx, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, errs.Wrap(errs.KindRedis, err, "executing pipeline")
	}

	end := len(cmds)
	if count > 0 && offset+count < end {
		end = offset + count
	}
	if offset > end {
		offset = end
	}

	out := make([]interface{}, 0, end-offset)
	for _, cmd := range cmds[offset:end] {
		v, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, errs.Wrap(errs.KindRedis, err, "reading pipelined result")
		}
		out = append(out, v)
	}
	return out, nil
}

// artificialDelayEnv names the environment variable spec §4.8 reads a
// human-readable duration from, to slow down every request for UI testing.
const artificialDelayEnv = "REDIS_DELAY"

func applyArtificialDelay(ctx context.Context) {
	raw := os.Getenv(artificialDelayEnv)
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
