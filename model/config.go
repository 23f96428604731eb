// Package model holds the data-model types shared across zedis-core
// packages, per spec §3.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ServerType is fixed for the lifetime of a client entry.
type ServerType string

const (
	ServerStandalone ServerType = "standalone"
	ServerSentinel   ServerType = "sentinel"
	ServerCluster    ServerType = "cluster"
)

// NodeRole is derived from Sentinel/Cluster discovery.
type NodeRole string

const (
	RoleMaster  NodeRole = "master"
	RoleReplica NodeRole = "replica"
	RoleFailed  NodeRole = "failed"
	RoleUnknown NodeRole = "unknown"
)

// AccessMode reflects whether writes should be exposed to the user.
type AccessMode string

const (
	AccessReadWrite      AccessMode = "read_write"
	AccessSafeMode       AccessMode = "safe_mode"
	AccessStrictReadOnly AccessMode = "strict_read_only"
)

// TLSConfig carries optional TLS material for a server connection.
type TLSConfig struct {
	Enabled    bool
	Insecure   bool
	ClientCert []byte
	ClientKey  []byte
	RootCert   []byte
}

// SSHTunnelConfig carries optional SSH-tunnel material for a server
// connection.
type SSHTunnelConfig struct {
	Enabled        bool
	Address        string // host[:port]
	Username       string
	Password       string
	PrivateKeyPEM  string
}

// ServerConfig is the identity of one configured Redis deployment, per
// spec §3. Secret fields (Password, SSH.Password, SSH.PrivateKeyPEM) are
// stored decrypted in memory; configstore encrypts them at rest.
type ServerConfig struct {
	ID         string
	Name       string
	Host       string
	Port       int
	Username   string
	Password   string
	TLS        TLSConfig
	SSH        SSHTunnelConfig
	MasterName string
	TypeHint   ServerType
	ReadOnly   bool
}

// Hash returns a stable fingerprint of every field, used as a cache key by
// connfactory and clientmanager. Two ServerConfig values that are
// field-for-field equal always hash the same.
func (c ServerConfig) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s|%s|%v|%v|%v|%s|%s|%s|%v|%v|%s|%s|%s|%s|%s|%v|%v",
		c.ID, c.Name, c.Host, c.Port, c.Username, c.Password,
		c.TLS.Enabled, c.TLS.Insecure, len(c.TLS.ClientCert), string(c.TLS.ClientCert), string(c.TLS.ClientKey),
		string(c.TLS.RootCert),
		c.SSH.Enabled, len(c.SSH.Address) > 0, c.SSH.Address, c.SSH.Username, c.SSH.Password, c.SSH.PrivateKeyPEM,
		c.MasterName, c.ReadOnly, c.TypeHint,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// RedisNode is a resolved endpoint: the server config with host/port
// overridden to the discovered node, plus its role.
type RedisNode struct {
	Config     ServerConfig
	Role       NodeRole
	MasterName string
}

// Addr returns host:port for the node.
func (n RedisNode) Addr() string {
	return fmt.Sprintf("%s:%d", n.Config.Host, n.Config.Port)
}
