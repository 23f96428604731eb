package sshtunnel

import (
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

// authMethods implements spec §4.5's authentication resolution: a non-empty
// key takes precedence over a password; the key is read from disk if it
// names an existing file, otherwise parsed directly as PEM/OpenSSH text.
// The user's password, if any, is tried as the key's passphrase.
func authMethods(cfg model.SSHTunnelConfig) ([]ssh.AuthMethod, error) {
	if cfg.PrivateKeyPEM != "" {
		raw := []byte(cfg.PrivateKeyPEM)
		if data, err := os.ReadFile(cfg.PrivateKeyPEM); err == nil {
			raw = data
		}

		signer, err := parsePrivateKey(raw, cfg.Password)
		if err != nil {
			return nil, errs.Wrap(errs.KindSSHKey, err, "parsing ssh private key")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}

	return nil, errs.Invalid("ssh authentication required")
}

func parsePrivateKey(raw []byte, passphrase string) (ssh.Signer, error) {
	if passphrase == "" {
		return ssh.ParsePrivateKey(raw)
	}
	return ssh.ParsePrivateKeyWithPassphrase(raw, []byte(passphrase))
}
