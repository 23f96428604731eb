// Package connfactory implements spec §4.6: the async connection factory
// that turns a ServerConfig + db number into a cached, multiplexed go-redis
// connection, dialing direct, TLS, or through an SSH tunnel.
package connfactory

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
	"github.com/bigtree-zedis/zedis-core/sshtunnel"
)

const pingThrottle = 60 * time.Second

type pooledConn struct {
	client   redis.UniversalClient
	lastPing time.Time
}

// Factory is the connection pool of spec §4.6. Safe for concurrent use.
type Factory struct {
	ssh   *sshtunnel.Manager
	clock clockwork.Clock

	mu   sync.Mutex
	pool map[string]*pooledConn
}

// New builds a Factory backed by an owned SSH tunnel manager.
func New() *Factory {
	return &Factory{
		ssh:   sshtunnel.NewManager(),
		clock: clockwork.NewRealClock(),
		pool:  map[string]*pooledConn{},
	}
}

// Close releases every pooled connection and the SSH tunnel manager.
func (f *Factory) Close() {
	f.mu.Lock()
	for key, p := range f.pool {
		p.client.Close()
		delete(f.pool, key)
	}
	f.mu.Unlock()
	f.ssh.Close()
}

func poolKey(cfg model.ServerConfig, db int) string {
	return cfg.Hash() + "|" + strconv.Itoa(db)
}

// Get returns a cached, validated connection for (cfg, db), building one if
// absent or stale, per spec §4.6's algorithm.
func (f *Factory) Get(ctx context.Context, cfg model.ServerConfig, db int) (redis.UniversalClient, error) {
	key := poolKey(cfg, db)

	f.mu.Lock()
	existing, ok := f.pool[key]
	f.mu.Unlock()

	if ok {
		if f.clock.Since(existing.lastPing) < pingThrottle {
			return existing.client, nil
		}
		if err := existing.client.Ping(ctx).Err(); err == nil {
			f.mu.Lock()
			existing.lastPing = f.clock.Now()
			f.mu.Unlock()
			return existing.client, nil
		}
		f.mu.Lock()
		delete(f.pool, key)
		f.mu.Unlock()
		existing.client.Close()
	}

	client, err := f.dial(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.pool[key] = &pooledConn{client: client, lastPing: f.clock.Now()}
	f.mu.Unlock()

	log.WithFields(log.Fields{"component": "connfactory", "server": cfg.ID, "db": db}).Debug("built new connection")
	return client, nil
}

// Sweep validates every pooled connection with a PING, evicting and closing
// any that fail, per spec §4.14's background sweeper. Returns the number of
// connections evicted.
func (f *Factory) Sweep(ctx context.Context) int {
	f.mu.Lock()
	keys := make([]string, 0, len(f.pool))
	for key := range f.pool {
		keys = append(keys, key)
	}
	f.mu.Unlock()

	evicted := 0
	for _, key := range keys {
		f.mu.Lock()
		p, ok := f.pool[key]
		f.mu.Unlock()
		if !ok {
			continue
		}
		if err := p.client.Ping(ctx).Err(); err == nil {
			f.mu.Lock()
			p.lastPing = f.clock.Now()
			f.mu.Unlock()
			continue
		}
		f.mu.Lock()
		delete(f.pool, key)
		f.mu.Unlock()
		p.client.Close()
		evicted++
	}
	return evicted
}

func (f *Factory) dial(ctx context.Context, cfg model.ServerConfig, db int) (redis.UniversalClient, error) {
	timeouts := CurrentTimeouts()

	opts := &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           db,
		DialTimeout:  timeouts.Connect,
		ReadTimeout:  timeouts.Response,
		WriteTimeout: timeouts.Response,
	}

	if cfg.TLS.Enabled {
		tc, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = tc
	}

	if cfg.SSH.Enabled {
		target := opts.Addr
		opts.Dialer = func(ctx context.Context, network, _ string) (net.Conn, error) {
			return f.ssh.Dial(ctx, cfg.SSH, target)
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.Wrap(errs.KindRedis, err, "connecting to %s", opts.Addr)
	}
	return client, nil
}
