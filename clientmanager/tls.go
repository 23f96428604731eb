package clientmanager

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

func buildClusterTLS(cfg model.ServerConfig) (*tls.Config, error) {
	tc := &tls.Config{InsecureSkipVerify: cfg.TLS.Insecure}

	if len(cfg.TLS.ClientCert) > 0 && len(cfg.TLS.ClientKey) > 0 {
		pair, err := tls.X509KeyPair(cfg.TLS.ClientCert, cfg.TLS.ClientKey)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalid, err, "parsing cluster client certificate pair")
		}
		tc.Certificates = []tls.Certificate{pair}
	}

	if len(cfg.TLS.RootCert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.TLS.RootCert) {
			return nil, errs.Invalid("invalid cluster root certificate PEM")
		}
		tc.RootCAs = pool
	}

	return tc, nil
}
