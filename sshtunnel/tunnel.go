// Package sshtunnel implements spec §4.5: SSH-tunneled Redis connections.
// All SSH dialing and channel I/O runs on a dedicated Runtime so it never
// blocks the caller's own goroutine scheduling.
package sshtunnel

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	log "github.com/sirupsen/logrus"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

const dialTimeout = 15 * time.Second

// session wraps a live *ssh.Client under a cache entry keyed by user@addr.
type session struct {
	client *ssh.Client
}

// Manager maintains a cache of authenticated SSH sessions and opens
// direct-tcpip channels over them for Redis connections to tunnel through.
type Manager struct {
	runtime *Runtime

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager starts a Manager backed by its own Runtime.
func NewManager() *Manager {
	return &Manager{
		runtime:  NewRuntime(DefaultWorkers),
		sessions: map[string]*session{},
	}
}

// Close stops the underlying Runtime and every cached SSH session.
func (m *Manager) Close() {
	m.runtime.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.sessions {
		s.client.Close()
		delete(m.sessions, key)
	}
}

// Dial opens a net.Conn to target (the Redis node's host:port) tunneled
// through the bastion described by cfg. The whole operation, including SSH
// handshake and channel opening, runs on the Manager's dedicated Runtime.
func (m *Manager) Dial(ctx context.Context, cfg model.SSHTunnelConfig, target string) (net.Conn, error) {
	return RunOn(ctx, m.runtime, func(ctx context.Context) (net.Conn, error) {
		client, err := m.sessionFor(cfg)
		if err != nil {
			return nil, err
		}
		conn, err := client.client.Dial("tcp", target)
		if err != nil {
			// the cached session may have gone stale between validation and
			// use (e.g. bastion restarted); drop it and retry once fresh.
			m.evict(sessionKey(cfg))
			client, err = m.sessionFor(cfg)
			if err != nil {
				return nil, err
			}
			conn, err = client.client.Dial("tcp", target)
			if err != nil {
				return nil, errs.Wrap(errs.KindSSH, err, "opening tunneled connection to %s", target)
			}
		}
		return conn, nil
	})
}

func sessionKey(cfg model.SSHTunnelConfig) string {
	return cfg.Username + "@" + cfg.Address
}

func (m *Manager) sessionFor(cfg model.SSHTunnelConfig) (*session, error) {
	key := sessionKey(cfg)

	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		if validateSession(s) {
			return s, nil
		}
		m.evict(key)
	} else {
		m.mu.Unlock()
	}

	s, err := m.dialSession(cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[key] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) dialSession(cfg model.SSHTunnelConfig) (*session, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	knownHosts := defaultKnownHostsPath()
	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback(knownHosts),
		Timeout:         dialTimeout,
	}

	client, err := ssh.Dial("tcp", cfg.Address, sshConfig)
	if err != nil {
		return nil, errs.Wrap(errs.KindSSH, err, "dialing ssh bastion %s", cfg.Address)
	}

	log.WithFields(log.Fields{"component": "sshtunnel", "bastion": cfg.Address, "user": cfg.Username}).Info("established ssh tunnel session")
	return &session{client: client}, nil
}

// validateSession confirms a cached session is still usable by opening and
// immediately closing a throwaway session channel, per spec §4.5's
// validate-before-reuse requirement.
func validateSession(s *session) bool {
	ch, err := s.client.NewSession()
	if err != nil {
		return false
	}
	ch.Close()
	return true
}

func (m *Manager) evict(key string) {
	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if ok {
		s.client.Close()
	}
}

// Sweep closes every cached session that no longer validates, matching the
// periodic maintenance spec §8 requires of every cache in the system.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	evicted := 0
	for _, k := range keys {
		m.mu.Lock()
		s, ok := m.sessions[k]
		m.mu.Unlock()
		if ok && !validateSession(s) {
			m.evict(k)
			evicted++
		}
	}
	return evicted
}
