package sshtunnel

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	log "github.com/sirupsen/logrus"
)

// hostKeyCallback implements spec §4.5 and §6's known-hosts check: accept
// the server's key iff the base64 key blob of its OpenSSH serialisation
// appears as a substring of a line in the user's known_hosts file; accept
// unconditionally if no such file exists.
//
// This is a known security limitation (spec §9): it is vulnerable to key
// rotation and partial-line collisions. A correct implementation would
// parse known-hosts entries and compare by host+fingerprint; this
// reimplementation intentionally does not go further than the source it's
// modeled on, per spec §9's instruction not to invent a different (and
// differently wrong) scheme.
func hostKeyCallback(knownHostsPath string) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return checkKnownHosts(knownHostsPath, key)
	}
}

func checkKnownHosts(path string, key ssh.PublicKey) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.WithField("component", "sshtunnel").Warn("no known_hosts file found, accepting host key unconditionally")
		return nil
	}
	if err != nil {
		return err
	}

	marshaled := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
	fields := strings.Fields(marshaled)
	serialized := fields[len(fields)-1] // just the base64 blob, no "ssh-rsa" prefix noise

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Supplemented from original_source/src/connection/ssh_tunnel.rs:
		// known_hosts lines can be prefixed with markers like
		// "@cert-authority" or "@revoked"; strip them before comparing so
		// marker-prefixed entries still count as "the line" containing
		// the key.
		line = strings.TrimPrefix(line, "@cert-authority ")
		line = strings.TrimPrefix(line, "@revoked ")
		if strings.Contains(line, serialized) {
			return nil
		}
	}
	return errHostKeyNotTrusted
}

func defaultKnownHostsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}
