package connfactory

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

// buildTLSConfig implements spec §4.6's TLS certificate rules: a
// client-cert-plus-client-key pair, a root cert alone, or both; absence of
// all three yields plain TLS with the system root pool.
func buildTLSConfig(cfg model.TLSConfig) (*tls.Config, error) {
	tc := &tls.Config{InsecureSkipVerify: cfg.Insecure}

	if len(cfg.ClientCert) > 0 && len(cfg.ClientKey) > 0 {
		pair, err := tls.X509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalid, err, "parsing client certificate pair")
		}
		tc.Certificates = []tls.Certificate{pair}
	}

	if len(cfg.RootCert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.RootCert) {
			return nil, errs.Invalid("invalid root certificate PEM")
		}
		tc.RootCAs = pool
	}

	return tc, nil
}
