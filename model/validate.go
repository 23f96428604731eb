package model

import "github.com/bigtree-zedis/zedis-core/errs"

// Validate checks the identity fields a GUI form (or any other consumer)
// must satisfy before a ServerConfig can be saved. Supplemented from
// original_source/src/views/servers.rs, which validates the same fields
// in the UI layer; hoisted here so every consumer shares one rule set.
func (c ServerConfig) Validate() error {
	if c.Host == "" {
		return errs.Invalid("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errs.Invalid("port must be between 1 and 65535")
	}
	if c.SSH.Enabled && c.SSH.Address == "" {
		return errs.Invalid("ssh tunnel requires an address")
	}
	return nil
}
