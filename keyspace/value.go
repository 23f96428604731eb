package keyspace

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/bigtree-zedis/zedis-core/clientmanager"
	"github.com/bigtree-zedis/zedis-core/decode"
	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/events"
	"github.com/bigtree-zedis/zedis-core/model"
)

// valuePageSize is the page size for every collection-type loader
// (List/Set/Hash/ZSet), per spec §4.12.
const valuePageSize = 100

// minVersionForKeepTTL is the Redis version spec §4.12's string-save rule
// switches on: SET ... KEEPTTL from 6.0.0, PX <ttl> below it.
var minVersionForKeepTTL = model.Version{Major: 6}

// SchemaMatcher resolves a registered Protobuf schema for a key, shared
// with the decode package.
type SchemaMatcher = decode.SchemaMatcher

// LoadValue implements spec §4.12's "Value loading" algorithm: TYPE, then
// TTL and MEMORY USAGE in parallel, then a type-specific first page.
func LoadValue(ctx context.Context, bus *events.Bus, matcher SchemaMatcher, client *clientmanager.Client, serverID, key string, maxTruncateLength int) (*model.RedisValue, error) {
	reply, err := client.Conn.Send(ctx, "TYPE", key)
	if err != nil {
		bus.Publish(events.NewErrorOccurred(err))
		return nil, err
	}
	keyType := keyTypeFromReply(reply)

	var ttlSeconds, sizeBytes int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reply, err := client.Conn.Send(gctx, "TTL", key)
		if err != nil {
			return err
		}
		ttlSeconds, _ = reply.(int64)
		return nil
	})
	g.Go(func() error {
		reply, err := client.Conn.Send(gctx, "MEMORY", "USAGE", key)
		if err != nil {
			return err
		}
		sizeBytes, _ = reply.(int64)
		return nil
	})
	if err := g.Wait(); err != nil {
		bus.Publish(events.NewErrorOccurred(err))
		return nil, err
	}

	value := &model.RedisValue{Status: model.ValueIdle, Type: keyType, ExpiresAt: ttlSeconds, SizeBytes: sizeBytes}

	loadErr := loadByType(ctx, matcher, client, serverID, key, keyType, value, maxTruncateLength)
	if loadErr != nil {
		bus.Publish(events.NewErrorOccurred(loadErr))
		return nil, loadErr
	}

	bus.Publish(events.ValueLoaded{Key: key})
	return value, nil
}

func keyTypeFromReply(reply interface{}) model.KeyType {
	s, _ := reply.(string)
	switch s {
	case "string":
		return model.KeyString
	case "list":
		return model.KeyList
	case "set":
		return model.KeySet
	case "zset":
		return model.KeyZSet
	case "hash":
		return model.KeyHash
	case "stream":
		return model.KeyStream
	default:
		return model.KeyUnknown
	}
}

func loadByType(ctx context.Context, matcher SchemaMatcher, client *clientmanager.Client, serverID, key string, keyType model.KeyType, value *model.RedisValue, maxTruncateLength int) error {
	switch keyType {
	case model.KeyString:
		return loadStringValue(ctx, matcher, client, serverID, key, value, maxTruncateLength)
	case model.KeyList:
		return loadListPage(ctx, client, key, value, 0)
	case model.KeySet:
		return loadSetPage(ctx, client, key, value, 0, "")
	case model.KeyHash:
		return loadHashPage(ctx, client, key, value, 0)
	case model.KeyZSet:
		return loadZSetPage(ctx, client, key, value, 0, model.SortAsc)
	default:
		return nil
	}
}

func loadStringValue(ctx context.Context, matcher SchemaMatcher, client *clientmanager.Client, serverID, key string, value *model.RedisValue, maxTruncateLength int) error {
	reply, err := client.Conn.Send(ctx, "GET", key)
	if err != nil {
		return err
	}
	raw := bytesFromReply(reply)
	result := decode.Decode(ctx, matcher, serverID, key, raw, maxTruncateLength)
	value.Bytes = &model.RedisBytesValue{
		Raw:     raw,
		Format:  result.Format,
		MIME:    result.MIME,
		Text:    result.Text,
		HasText: result.HasText,
		Display: model.DisplayAuto,
	}
	return nil
}

func bytesFromReply(reply interface{}) []byte {
	switch v := reply.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

func loadListPage(ctx context.Context, client *clientmanager.Client, key string, value *model.RedisValue, offset int64) error {
	total, err := client.Conn.Send(ctx, "LLEN", key)
	if err != nil {
		return err
	}
	stop := offset + valuePageSize - 1
	reply, err := client.Conn.Send(ctx, "LRANGE", key, offset, stop)
	if err != nil {
		return err
	}
	items := stringsFromReply(reply)
	totalN, _ := total.(int64)

	payload := value.Collection
	if payload == nil || offset == 0 {
		payload = &model.CollectionPayload{}
	}
	for _, s := range items {
		payload.Items = append(payload.Items, model.KeyValuePair{Value: []byte(s)})
	}
	payload.Total = totalN
	payload.Cursors = []uint64{uint64(offset + int64(len(items)))}
	payload.Complete = int64(len(payload.Items)) >= totalN
	value.Collection = payload
	return nil
}

func loadSetPage(ctx context.Context, client *clientmanager.Client, key string, value *model.RedisValue, cursor uint64, keyword string) error {
	reply, err := client.Conn.Send(ctx, "SSCAN", key, cursor, "MATCH", scanPattern(keyword), "COUNT", valuePageSize)
	if err != nil {
		return err
	}
	newCursor, members, err := parseScanPairReply(reply)
	if err != nil {
		return err
	}

	payload := value.Collection
	if payload == nil || cursor == 0 {
		payload = &model.CollectionPayload{}
	}
	for _, m := range members {
		payload.Items = append(payload.Items, model.KeyValuePair{Member: m})
	}
	payload.Keyword = keyword
	payload.Cursors = []uint64{newCursor}
	payload.Complete = newCursor == 0
	value.Collection = payload
	return nil
}

func loadHashPage(ctx context.Context, client *clientmanager.Client, key string, value *model.RedisValue, cursor uint64) error {
	reply, err := client.Conn.Send(ctx, "HSCAN", key, cursor, "COUNT", valuePageSize)
	if err != nil {
		return err
	}
	newCursor, fields, err := parseScanPairReply(reply)
	if err != nil {
		return err
	}

	payload := value.Collection
	if payload == nil || cursor == 0 {
		payload = &model.CollectionPayload{}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		payload.Items = append(payload.Items, model.KeyValuePair{Member: fields[i], Value: []byte(fields[i+1])})
	}
	payload.Cursors = []uint64{newCursor}
	payload.Complete = newCursor == 0
	value.Collection = payload
	return nil
}

func loadZSetPage(ctx context.Context, client *clientmanager.Client, key string, value *model.RedisValue, offset int64, order model.SortOrder) error {
	cmd := "ZRANGEBYSCORE"
	min, max := "-inf", "+inf"
	if order == model.SortDesc {
		cmd = "ZREVRANGEBYSCORE"
		min, max = "+inf", "-inf"
	}
	reply, err := client.Conn.Send(ctx, cmd, key, min, max, "WITHSCORES", "LIMIT", offset, valuePageSize)
	if err != nil {
		return err
	}
	fields := stringsFromReply(reply)

	total, err := client.Conn.Send(ctx, "ZCARD", key)
	if err != nil {
		return err
	}
	totalN, _ := total.(int64)

	payload := value.Collection
	if payload == nil || offset == 0 {
		payload = &model.CollectionPayload{}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		score, _ := strconv.ParseFloat(fields[i+1], 64)
		payload.Items = append(payload.Items, model.KeyValuePair{Member: fields[i], Score: score})
	}
	payload.Total = totalN
	payload.SortOrder = order
	payload.Cursors = []uint64{uint64(offset + int64(len(fields)/2))}
	payload.Complete = int64(len(payload.Items)) >= totalN
	value.Collection = payload
	return nil
}

// LoadMore continues pagination for a collection-type value already
// returned by LoadValue, issuing the next SCAN/range page per spec
// §4.12's "preserves cursor state so the load-more pathway issues the
// next page without recomputing from the start."
func LoadMore(ctx context.Context, bus *events.Bus, client *clientmanager.Client, key string, value *model.RedisValue) error {
	if value.Collection == nil || value.Collection.Complete {
		return nil
	}
	cursor := value.Collection.Cursors[0]

	var err error
	switch value.Type {
	case model.KeyList:
		err = loadListPage(ctx, client, key, value, int64(cursor))
	case model.KeySet:
		err = loadSetPage(ctx, client, key, value, cursor, value.Collection.Keyword)
	case model.KeyHash:
		err = loadHashPage(ctx, client, key, value, cursor)
	case model.KeyZSet:
		err = loadZSetPage(ctx, client, key, value, int64(cursor), value.Collection.SortOrder)
	}
	if err != nil {
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}
	if value.Collection.Complete {
		bus.Publish(events.ValuePaginationFinished{Key: key})
	}
	return nil
}

func stringsFromReply(reply interface{}) []string {
	raw, _ := reply.([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		case []byte:
			out = append(out, string(s))
		}
	}
	return out
}

// parseScanPairReply parses the [cursor, [field, value, field, value...]]
// shape shared by SSCAN/HSCAN.
func parseScanPairReply(reply interface{}) (uint64, []string, error) {
	fields, ok := reply.([]interface{})
	if !ok || len(fields) != 2 {
		return 0, nil, errs.New(errs.KindRedis, "unexpected SCAN reply shape")
	}
	cursorStr, _ := fields[0].(string)
	cursor, err := strconv.ParseUint(cursorStr, 10, 64)
	if err != nil {
		return 0, nil, errs.Wrap(errs.KindRedis, err, "parsing scan cursor")
	}
	return cursor, stringsFromReply(fields[1]), nil
}

// SaveString implements spec §4.12's string-save algorithm: SET key value,
// appending KEEPTTL (server ≥ 6.0.0) or PX ttlMillis (positive TTL below
// that), then refreshing SizeBytes via MEMORY USAGE. On failure the
// caller's in-flight mutation is rolled back and ErrorOccurred is emitted.
func SaveString(ctx context.Context, bus *events.Bus, client *clientmanager.Client, key string, value *model.RedisValue, newRaw []byte) error {
	value.BeginMutation()

	args := []interface{}{"SET", key, newRaw}
	if !client.Version.LessThan(minVersionForKeepTTL) {
		args = append(args, "KEEPTTL")
	} else if value.ExpiresAt > 0 {
		args = append(args, "PX", value.ExpiresAt*1000)
	}

	if _, err := client.Conn.Send(ctx, args...); err != nil {
		value.Rollback()
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}

	sizeReply, err := client.Conn.Send(ctx, "MEMORY", "USAGE", key)
	if err != nil {
		value.Rollback()
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}

	value.Bytes.Raw = newRaw
	value.SizeBytes, _ = sizeReply.(int64)
	value.CommitMutation()
	bus.Publish(events.ValueUpdated{Key: key})
	return nil
}

// UpdateListItem applies LSET key index newValue, per spec §4.12.
func UpdateListItem(ctx context.Context, bus *events.Bus, client *clientmanager.Client, key string, value *model.RedisValue, index int64, newValue []byte) error {
	value.BeginMutation()
	if _, err := client.Conn.Send(ctx, "LSET", key, index, newValue); err != nil {
		value.Rollback()
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}
	if int(index) < len(value.Collection.Items) {
		value.Collection.Items[index].Value = newValue
	}
	value.CommitMutation()
	bus.Publish(events.ValueUpdated{Key: key})
	return nil
}

// RemoveListItem applies LREM key 0 originalValue; spec §4.12 requires the
// original value, since LREM removes by value rather than index.
func RemoveListItem(ctx context.Context, bus *events.Bus, client *clientmanager.Client, key string, value *model.RedisValue, index int64, originalValue []byte) error {
	value.BeginMutation()
	if _, err := client.Conn.Send(ctx, "LREM", key, 0, originalValue); err != nil {
		value.Rollback()
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}
	if int(index) < len(value.Collection.Items) {
		value.Collection.Items = append(value.Collection.Items[:index], value.Collection.Items[index+1:]...)
	}
	value.CommitMutation()
	bus.Publish(events.ValueUpdated{Key: key})
	return nil
}

// RemoveZSetMember applies ZREM key member.
func RemoveZSetMember(ctx context.Context, bus *events.Bus, client *clientmanager.Client, key, member string, value *model.RedisValue) error {
	value.BeginMutation()
	if _, err := client.Conn.Send(ctx, "ZREM", key, member); err != nil {
		value.Rollback()
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}
	if value.Collection != nil {
		for i, item := range value.Collection.Items {
			if item.Member == member {
				value.Collection.Items = append(value.Collection.Items[:i], value.Collection.Items[i+1:]...)
				break
			}
		}
	}
	value.CommitMutation()
	bus.Publish(events.ValueUpdated{Key: key})
	return nil
}

// DeleteKey implements spec §4.12's key deletion: DEL key, then on success
// remove it from list and rebuild the tree, emitting KeyDeleted.
func DeleteKey(ctx context.Context, bus *events.Bus, client *clientmanager.Client, list *KeyList, key string) error {
	reply, err := client.Conn.Send(ctx, "DEL", key)
	if err != nil {
		bus.Publish(events.NewErrorOccurred(err))
		return err
	}
	if n, _ := reply.(int64); n == 0 {
		return nil
	}

	out := make([]string, 0, len(list.Keys))
	for _, k := range list.Keys {
		if k == key {
			delete(list.seen, k)
			continue
		}
		out = append(out, k)
	}
	list.Keys = out
	list.Tree = model.BuildKeyTree(list.Keys, "")

	bus.Publish(events.KeyDeleted{Key: key})
	return nil
}
