// Package errs defines the closed error taxonomy every component boundary
// converts foreign errors into, per spec §7.
package errs

import (
	"github.com/gravitational/trace"
)

// Kind is a machine-readable error category surfaced to UI consumers
// through events.ErrorOccurred.
type Kind string

const (
	KindInvalid           Kind = "invalid"
	KindRedis             Kind = "redis"
	KindIO                Kind = "io"
	KindSerdeJSON         Kind = "serde_json"
	KindConfigSerialize   Kind = "config_serialize"
	KindConfigDeserialize Kind = "config_deserialize"
	KindSSH               Kind = "ssh"
	KindSSHKey            Kind = "ssh_key"
	KindStorageOpen       Kind = "storage_open"
	KindStorageTxn        Kind = "storage_txn"
	KindStorageTable      Kind = "storage_table"
	KindStorageCommit     Kind = "storage_commit"
	KindStorageRead       Kind = "storage_read"
	KindStorageWrite      Kind = "storage_write"
)

// kindField is the trace.Error field name Kind is stashed under.
const kindField = "zedis.kind"

// Wrap tags err with kind and wraps it with trace, preserving the original
// error in the trace chain so trace.Unwrap / errors.Is still work.
func Wrap(kind Kind, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	wrapped := trace.Wrap(err, args...)
	if tErr, ok := wrapped.(*trace.TraceErr); ok {
		tErr.AddField(kindField, string(kind))
		return tErr
	}
	return trace.WrapWithMessage(err, string(kind))
}

// New builds a fresh error of the given kind with a formatted message,
// without an underlying cause to wrap.
func New(kind Kind, format string, args ...interface{}) error {
	return Wrap(kind, trace.Errorf(format, args...))
}

// KindOf recovers the machine-readable Kind from an error produced by Wrap
// or New. Errors from elsewhere are reported as KindInvalid — every
// component boundary is expected to convert foreign errors before they
// escape, so this is the fallback for a bug, not the common path.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if tErr, ok := err.(*trace.TraceErr); ok {
		if k, ok := tErr.Fields[kindField].(string); ok {
			return Kind(k)
		}
	}
	return KindInvalid
}

// Invalid is a convenience constructor matching the source's most common
// error kind — a caller-facing bad parameter or bad state.
func Invalid(format string, args ...interface{}) error {
	return New(KindInvalid, format, args...)
}
