package errs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/errs"
)

func TestKindOfRoundTrips(t *testing.T) {
	err := errs.New(errs.KindRedis, "connection refused to %s", "10.0.0.1:6379")
	require.Equal(t, errs.KindRedis, errs.KindOf(err))
}

func TestWrapPreservesKind(t *testing.T) {
	base := errs.Invalid("bad host %q", "")
	wrapped := errs.Wrap(errs.KindIO, base, "while dialing")
	require.Equal(t, errs.KindIO, errs.KindOf(wrapped))
}

func TestKindOfNil(t *testing.T) {
	require.Equal(t, errs.Kind(""), errs.KindOf(nil))
}

func TestKindOfForeignError(t *testing.T) {
	require.Equal(t, errs.KindInvalid, errs.KindOf(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
