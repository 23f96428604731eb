package model

import "github.com/coreos/go-semver/semver"

// KeyType is derived from Redis TYPE.
type KeyType string

const (
	KeyUnknown   KeyType = "unknown"
	KeyString    KeyType = "string"
	KeyList      KeyType = "list"
	KeySet       KeyType = "set"
	KeyZSet      KeyType = "zset"
	KeyHash      KeyType = "hash"
	KeyStream    KeyType = "stream"
	KeyVectorSet KeyType = "vectorset"
)

// ValueStatus tracks the lifecycle of a loaded RedisValue.
type ValueStatus string

const (
	ValueIdle     ValueStatus = "idle"
	ValueLoading  ValueStatus = "loading"
	ValueUpdating ValueStatus = "updating"
)

// SortOrder applies to ZSet loading only.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// NoTTL and ExpiredOrMissing are the sentinel ExpiresAt values, taken from
// Redis TTL's own -1/-2 replies. ExpiresAt holds the remaining TTL in
// seconds, not an absolute timestamp.
const (
	NoTTL            int64 = -1
	ExpiredOrMissing int64 = -2
)

// CollectionPayload is the shared shape for list/set/zset/hash values:
// items loaded so far, the known total size, per-master scan cursors (for
// scan-based types), an optional keyword filter and a completion flag.
type CollectionPayload struct {
	Items      []KeyValuePair
	Total      int64
	Cursors    []uint64
	Keyword    string
	Complete   bool
	SortOrder  SortOrder
}

// KeyValuePair is a generic member/value pair used across list, set, zset
// and hash payloads (Member is unused for plain lists and sets).
type KeyValuePair struct {
	Member string
	Value  []byte
	Score  float64
}

// RedisValue is the loaded state of a single selected key, per spec §3.
type RedisValue struct {
	Status ValueStatus
	Type   KeyType

	Bytes      *RedisBytesValue
	Collection *CollectionPayload

	ExpiresAt int64 // seconds remaining as returned by TTL, or NoTTL/ExpiredOrMissing
	SizeBytes int64

	// pendingRestore is the snapshot taken before a mutating operation
	// (SET/LSET/HSET/...) begins, so failure recovery (spec §4.12) can put
	// the value back without a re-read. Supplemented from
	// original_source/src/states/server/value.rs.
	pendingRestore *RedisValue
}

// BeginMutation snapshots the current value so Rollback can restore it.
func (v *RedisValue) BeginMutation() {
	snapshot := *v
	snapshot.pendingRestore = nil
	v.pendingRestore = &snapshot
	v.Status = ValueUpdating
}

// Rollback restores the last BeginMutation snapshot, if any, and returns
// whether a rollback actually occurred.
func (v *RedisValue) Rollback() bool {
	if v.pendingRestore == nil {
		return false
	}
	restored := *v.pendingRestore
	*v = restored
	return true
}

// CommitMutation clears the pending snapshot after a successful mutation.
func (v *RedisValue) CommitMutation() {
	v.pendingRestore = nil
	v.Status = ValueIdle
}

// DataFormat tags the result of the decode pipeline (spec §4.11).
type DataFormat string

const (
	FormatBytes      DataFormat = "bytes"
	FormatText       DataFormat = "text"
	FormatJSON       DataFormat = "json"
	FormatPreview    DataFormat = "preview"
	FormatGzip       DataFormat = "gzip"
	FormatZstd       DataFormat = "zstd"
	FormatSnappy     DataFormat = "snappy"
	FormatMsgPack    DataFormat = "messagepack"
	FormatProtobuf   DataFormat = "protobuf"
	FormatJPEG       DataFormat = "jpeg"
	FormatPNG        DataFormat = "png"
	FormatWebP       DataFormat = "webp"
	FormatGIF        DataFormat = "gif"
	FormatSVG        DataFormat = "svg"
)

// DisplayMode is the user's rendering preference for a bytes value.
type DisplayMode string

const (
	DisplayAuto  DisplayMode = "auto"
	DisplayPlain DisplayMode = "plain"
	DisplayHex   DisplayMode = "hex"
)

// RedisBytesValue is the decoded form of a String-type key.
type RedisBytesValue struct {
	Raw     []byte
	Format  DataFormat
	MIME    string
	Text    string
	HasText bool
	Display DisplayMode
}

// Version is a parsed semantic Redis server version, e.g. "7.2.3".
type Version = semver.Version
