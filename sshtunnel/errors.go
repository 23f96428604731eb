package sshtunnel

import "github.com/bigtree-zedis/zedis-core/errs"

var errHostKeyNotTrusted = errs.New(errs.KindSSH, "host key not found in known_hosts")
