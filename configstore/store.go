// Package configstore implements spec §4.3: the encrypted, file-backed
// server list. Secrets are decrypted on load and re-encrypted on save; the
// in-memory snapshot is swapped atomically so concurrent readers never see
// a half-written save.
package configstore

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
	"github.com/bigtree-zedis/zedis-core/secret"
)

var logger = log.WithField("component", "configstore")

// configVendor and configApp name the platform config directory segments
// spec §6 specifies: vendor "bigtree", app "zedis".
const (
	configVendor = "bigtree"
	configApp    = "zedis"
	configFile   = "redis-servers.toml"
)

// legacyDirName is the pre-platform-config-dir layout's directory, kept
// directly under the user's home directory.
const legacyDirName = ".zedis"

// DefaultPath returns the platform config directory location spec §6
// names: vendor bigtree, app zedis, file redis-servers.toml, resolved via
// os.UserConfigDir() (no pack checkout reaches for a platform-directories
// library for this — os.UserConfigDir already gives the per-OS base path
// stdlib needs no help picking).
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errs.Wrap(errs.KindIO, err, "resolving platform config directory")
	}
	return filepath.Join(base, configVendor, configApp, configFile), nil
}

// OpenDefault resolves DefaultPath, migrates a legacy ~/.zedis directory
// into it on first run if one exists, and opens the store there, per
// spec §6's "Config file" migration rule.
func OpenDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	if err := migrateLegacyDir(path); err != nil {
		return nil, err
	}
	return Open(path)
}

// migrateLegacyDir copies the contents of ~/.zedis into the new config
// directory and removes the legacy directory, if it exists and the new
// location hasn't already been populated.
func migrateLegacyDir(newPath string) error {
	if _, err := os.Stat(newPath); err == nil {
		return nil // already migrated (or never legacy)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil // no home directory to check for a legacy install
	}
	legacyDir := filepath.Join(home, legacyDirName)
	info, err := os.Stat(legacyDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	newDir := filepath.Dir(newPath)
	if err := os.MkdirAll(newDir, 0o700); err != nil {
		return errs.Wrap(errs.KindIO, err, "creating config directory for migration")
	}

	entries, err := os.ReadDir(legacyDir)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "reading legacy config directory")
	}
	for _, entry := range entries {
		src := filepath.Join(legacyDir, entry.Name())
		dst := filepath.Join(newDir, entry.Name())
		raw, err := os.ReadFile(src)
		if err != nil {
			return errs.Wrap(errs.KindIO, err, "reading legacy file %s", entry.Name())
		}
		if err := os.WriteFile(dst, raw, 0o600); err != nil {
			return errs.Wrap(errs.KindIO, err, "writing migrated file %s", entry.Name())
		}
	}

	if err := os.RemoveAll(legacyDir); err != nil {
		return errs.Wrap(errs.KindIO, err, "removing legacy config directory after migration")
	}
	logger.WithFields(log.Fields{"from": legacyDir, "to": newDir}).Info("migrated legacy config directory")
	return nil
}

// Record is the on-disk shape of one server entry: spec §4.3's recognised
// field set. Fields beyond model.ServerConfig (Description, UpdatedAt,
// QueryMode, SoftWrap) are GUI-facing metadata the core persists verbatim
// without interpreting.
type Record struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Username    string `toml:"username,omitempty"`
	Password    string `toml:"password,omitempty"`
	MasterName  string `toml:"master_name,omitempty"`
	Description string `toml:"description,omitempty"`
	UpdatedAt   string `toml:"updated_at,omitempty"`
	QueryMode   string `toml:"query_mode,omitempty"`
	SoftWrap    bool   `toml:"soft_wrap,omitempty"`

	TLS        bool   `toml:"tls,omitempty"`
	Insecure   bool   `toml:"insecure,omitempty"`
	ClientCert string `toml:"client_cert,omitempty"`
	ClientKey  string `toml:"client_key,omitempty"`
	RootCert   string `toml:"root_cert,omitempty"`

	SSHTunnel  bool   `toml:"ssh_tunnel,omitempty"`
	SSHAddr    string `toml:"ssh_addr,omitempty"`
	SSHUser    string `toml:"ssh_username,omitempty"`
	SSHPass    string `toml:"ssh_password,omitempty"`
	SSHKey     string `toml:"ssh_key,omitempty"`

	ReadOnly   bool   `toml:"readonly,omitempty"`
	ServerType string `toml:"server_type,omitempty"`
}

// document is the top-level TOML shape: an array of server tables.
type document struct {
	Server []Record `toml:"server"`
}

// Store is one encrypted server-list file. The zero value is not usable;
// construct with Open.
type Store struct {
	path     string
	snapshot atomic.Pointer[[]model.ServerConfig]
	extras   atomic.Pointer[map[string]Record]
}

// Open loads path, creating an empty file if it doesn't exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errs.Wrap(errs.KindIO, err, "creating config directory")
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, errs.Wrap(errs.KindIO, err, "creating config file")
		}
		empty := []model.ServerConfig{}
		s.snapshot.Store(&empty)
		extras := map[string]Record{}
		s.extras.Store(&extras)
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "reading config file %s", s.path)
	}
	var doc document
	if len(raw) > 0 {
		if err := toml.Unmarshal(raw, &doc); err != nil {
			return errs.Wrap(errs.KindConfigDeserialize, err, "parsing config file")
		}
	}

	configs := make([]model.ServerConfig, 0, len(doc.Server))
	extras := make(map[string]Record, len(doc.Server))
	for _, rec := range doc.Server {
		cfg, err := recordToConfig(rec)
		if err != nil {
			// Failure to decrypt a single secret is degraded, never fatal
			// (spec §4.3): the field is kept as-stored.
			logger.WithError(err).WithField("id", rec.ID).Warn("leaving secret fields as stored")
		}
		configs = append(configs, cfg)
		extras[rec.ID] = rec
	}
	s.snapshot.Store(&configs)
	s.extras.Store(&extras)
	return nil
}

// List returns the current in-memory snapshot.
func (s *Store) List() []model.ServerConfig {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	out := make([]model.ServerConfig, len(*p))
	copy(out, *p)
	return out
}

// Get returns the server with id, or errs.KindInvalid NotFound-style error.
func (s *Store) Get(id string) (model.ServerConfig, error) {
	for _, c := range s.List() {
		if c.ID == id {
			return c, nil
		}
	}
	return model.ServerConfig{}, errs.New(errs.KindInvalid, "server %q not found", id)
}

// Save writes configs to disk, re-encrypting secrets, then atomically
// publishes the new snapshot so concurrent readers see all-old or all-new.
func (s *Store) Save(configs []model.ServerConfig) error {
	extrasPtr := s.extras.Load()
	var extras map[string]Record
	if extrasPtr != nil {
		extras = *extrasPtr
	}

	doc := document{Server: make([]Record, 0, len(configs))}
	for _, cfg := range configs {
		rec, err := configToRecord(cfg)
		if err != nil {
			return err
		}
		if prev, ok := extras[cfg.ID]; ok {
			rec.Description = prev.Description
			rec.UpdatedAt = prev.UpdatedAt
			rec.QueryMode = prev.QueryMode
			rec.SoftWrap = prev.SoftWrap
		}
		doc.Server = append(doc.Server, rec)
	}

	raw, err := toml.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.KindConfigSerialize, err, "encoding config file")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errs.Wrap(errs.KindIO, err, "writing config file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errs.Wrap(errs.KindIO, err, "replacing config file")
	}

	snap := make([]model.ServerConfig, len(configs))
	copy(snap, configs)
	s.snapshot.Store(&snap)

	newExtras := make(map[string]Record, len(doc.Server))
	for _, rec := range doc.Server {
		newExtras[rec.ID] = rec
	}
	s.extras.Store(&newExtras)
	return nil
}

func recordToConfig(rec Record) (model.ServerConfig, error) {
	cfg := model.ServerConfig{
		ID:         rec.ID,
		Name:       rec.Name,
		Host:       rec.Host,
		Port:       rec.Port,
		Username:   rec.Username,
		MasterName: rec.MasterName,
		TypeHint:   model.ServerType(rec.ServerType),
		ReadOnly:   rec.ReadOnly,
		TLS: model.TLSConfig{
			Enabled:    rec.TLS,
			Insecure:   rec.Insecure,
			ClientCert: []byte(rec.ClientCert),
			ClientKey:  []byte(rec.ClientKey),
			RootCert:   []byte(rec.RootCert),
		},
		SSH: model.SSHTunnelConfig{
			Enabled:  rec.SSHTunnel,
			Address:  rec.SSHAddr,
			Username: rec.SSHUser,
		},
	}

	var firstErr error
	if rec.Password != "" {
		if pw, err := secret.Open(rec.Password); err == nil {
			cfg.Password = pw
		} else {
			cfg.Password = rec.Password
			firstErr = err
		}
	}
	if rec.SSHPass != "" {
		if pw, err := secret.Open(rec.SSHPass); err == nil {
			cfg.SSH.Password = pw
		} else {
			cfg.SSH.Password = rec.SSHPass
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if rec.SSHKey != "" {
		if key, err := secret.Open(rec.SSHKey); err == nil {
			cfg.SSH.PrivateKeyPEM = key
		} else {
			cfg.SSH.PrivateKeyPEM = rec.SSHKey
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return cfg, firstErr
}

func configToRecord(cfg model.ServerConfig) (Record, error) {
	rec := Record{
		ID:         cfg.ID,
		Name:       cfg.Name,
		Host:       cfg.Host,
		Port:       cfg.Port,
		Username:   cfg.Username,
		MasterName: cfg.MasterName,
		TLS:        cfg.TLS.Enabled,
		Insecure:   cfg.TLS.Insecure,
		ClientCert: string(cfg.TLS.ClientCert),
		ClientKey:  string(cfg.TLS.ClientKey),
		RootCert:   string(cfg.TLS.RootCert),
		SSHTunnel:  cfg.SSH.Enabled,
		SSHAddr:    cfg.SSH.Address,
		SSHUser:    cfg.SSH.Username,
		ReadOnly:   cfg.ReadOnly,
		ServerType: string(cfg.TypeHint),
	}
	if cfg.Password != "" {
		sealed, err := secret.Seal(cfg.Password)
		if err != nil {
			return Record{}, err
		}
		rec.Password = sealed
	}
	if cfg.SSH.Password != "" {
		sealed, err := secret.Seal(cfg.SSH.Password)
		if err != nil {
			return Record{}, err
		}
		rec.SSHPass = sealed
	}
	if cfg.SSH.PrivateKeyPEM != "" {
		sealed, err := secret.Seal(cfg.SSH.PrivateKeyPEM)
		if err != nil {
			return Record{}, err
		}
		rec.SSHKey = sealed
	}
	return rec, nil
}
