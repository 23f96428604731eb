// Package sweeper implements spec §4.14: the periodic background task that
// evicts stale entries from the connection pool, client cache, and SSH
// session cache.
package sweeper

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

const defaultInterval = 60 * time.Second

var logger = log.WithField("component", "sweeper")

// ConnectionPool is the subset of connfactory.Factory the sweeper depends
// on.
type ConnectionPool interface {
	Sweep(ctx context.Context) int
}

// ClientCache is the subset of clientmanager.Manager the sweeper depends
// on.
type ClientCache interface {
	Sweep() (evicted, remaining int)
}

// SSHSessionCache is the subset of sshtunnel.Manager the sweeper depends
// on.
type SSHSessionCache interface {
	Sweep() int
}

// Sweeper runs Sweep on every registered cache at a fixed interval until
// stopped.
type Sweeper struct {
	pool    ConnectionPool
	clients ClientCache
	ssh     SSHSessionCache
	clock   clockwork.Clock

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New builds a Sweeper over the three caches spec §4.14 names.
func New(pool ConnectionPool, clients ClientCache, ssh SSHSessionCache) *Sweeper {
	return &Sweeper{
		pool:     pool,
		clients:  clients,
		ssh:      ssh,
		clock:    clockwork.NewRealClock(),
		interval: defaultInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithClock overrides the clock, for deterministic tests.
func (s *Sweeper) WithClock(clock clockwork.Clock) *Sweeper {
	s.clock = clock
	return s
}

// WithInterval overrides the sweep period, for faster tests.
func (s *Sweeper) WithInterval(interval time.Duration) *Sweeper {
	s.interval = interval
	return s
}

// Run blocks, sweeping every interval, until ctx is cancelled or Stop is
// called. Intended to be run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.clock.After(s.interval):
			s.sweepOnce(ctx)
		}
	}
}

// Stop requests Run to return and waits for it to do so. Safe to call at
// most once.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if n := s.pool.Sweep(ctx); n > 0 {
		logger.WithField("evicted", n).Info("swept stale connections from pool")
	}
	if evicted, remaining := s.clients.Sweep(); evicted > 0 {
		logger.WithFields(log.Fields{"evicted": evicted, "remaining": remaining}).Info("swept stale clients from cache")
	}
	if n := s.ssh.Sweep(); n > 0 {
		logger.WithField("evicted", n).Info("swept stale sessions from SSH tunnel cache")
	}
}
