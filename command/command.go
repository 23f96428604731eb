// Package command implements spec §4.10: the asynchronous command surface
// built over a clientmanager.Client's connections, with fan-out across
// every master for cluster-wide operations.
package command

import (
	"context"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/bigtree-zedis/zedis-core/clientmanager"
	"github.com/bigtree-zedis/zedis-core/errs"
)

// Ping issues PING on the primary connection and returns once PONG arrives.
func Ping(ctx context.Context, c *clientmanager.Client) error {
	reply, err := c.Conn.Send(ctx, "PING")
	if err != nil {
		return err
	}
	if s, _ := reply.(string); s != "PONG" {
		return errs.New(errs.KindRedis, "unexpected PING reply: %v", reply)
	}
	return nil
}

// DBSize fans DBSIZE out across every master and sums the results.
func DBSize(ctx context.Context, c *clientmanager.Client) (int64, error) {
	sizes := make([]int64, len(c.MasterConns))

	g, ctx := errgroup.WithContext(ctx)
	for i, conn := range c.MasterConns {
		i, conn := i, conn
		g.Go(func() error {
			reply, err := conn.Send(ctx, "DBSIZE")
			if err != nil {
				return err
			}
			n, _ := reply.(int64)
			sizes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range sizes {
		total += n
	}
	return total, nil
}

// ScanPage is one master's SCAN result.
type ScanPage struct {
	Cursor uint64
	Keys   []string
}

// FirstScan starts a new fan-out scan with cursor 0 on each master.
func FirstScan(ctx context.Context, c *clientmanager.Client, pattern string, count int) ([]ScanPage, error) {
	cursors := make([]uint64, len(c.MasterConns))
	return Scan(ctx, c, cursors, pattern, count)
}

// Scan issues SCAN cursor MATCH pattern COUNT count on each master in
// parallel and returns one ScanPage per master, in MasterConns order;
// FlattenSortedKeys merges and sorts the pages' keys.
func Scan(ctx context.Context, c *clientmanager.Client, cursors []uint64, pattern string, count int) ([]ScanPage, error) {
	pages := make([]ScanPage, len(c.MasterConns))

	g, ctx := errgroup.WithContext(ctx)
	for i, conn := range c.MasterConns {
		i, conn := i, conn
		cursor := uint64(0)
		if i < len(cursors) {
			cursor = cursors[i]
		}
		g.Go(func() error {
			reply, err := conn.Send(ctx, "SCAN", cursor, "MATCH", pattern, "COUNT", count)
			if err != nil {
				return err
			}
			newCursor, keys, err := parseScanReply(reply)
			if err != nil {
				return err
			}
			pages[i] = ScanPage{Cursor: newCursor, Keys: keys}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// AllCursorsZero reports whether every page's cursor is 0, meaning the scan
// across all masters has completed.
func AllCursorsZero(pages []ScanPage) bool {
	for _, p := range pages {
		if p.Cursor != 0 {
			return false
		}
	}
	return true
}

// FlattenSortedKeys merges every page's keys into one sorted, deduplicated
// slice, matching spec §4.10's "flatten keys, sort".
func FlattenSortedKeys(pages []ScanPage) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range pages {
		for _, k := range p.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func parseScanReply(reply interface{}) (uint64, []string, error) {
	fields, ok := reply.([]interface{})
	if !ok || len(fields) != 2 {
		return 0, nil, errs.New(errs.KindRedis, "unexpected SCAN reply shape")
	}
	cursorStr, _ := fields[0].(string)
	cursor, err := strconv.ParseUint(cursorStr, 10, 64)
	if err != nil {
		return 0, nil, errs.Wrap(errs.KindRedis, err, "parsing scan cursor")
	}
	rawKeys, _ := fields[1].([]interface{})
	keys := make([]string, 0, len(rawKeys))
	for _, k := range rawKeys {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return cursor, keys, nil
}

// QueryAsyncMasters sends cmds[i] to master i (or cmds[0] if cmds is
// shorter than the master count), gathering results in master order.
func QueryAsyncMasters(ctx context.Context, c *clientmanager.Client, cmds [][]interface{}) ([]interface{}, error) {
	results := make([]interface{}, len(c.MasterConns))

	g, ctx := errgroup.WithContext(ctx)
	for i, conn := range c.MasterConns {
		i, conn := i, conn
		args := cmds[0]
		if i < len(cmds) {
			args = cmds[i]
		}
		g.Go(func() error {
			reply, err := conn.Send(ctx, args...)
			if err != nil {
				return err
			}
			results[i] = reply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Do is the thin pass-through for any other command, per spec §4.10.
func Do(ctx context.Context, c *clientmanager.Client, args ...interface{}) (interface{}, error) {
	return c.Conn.Send(ctx, args...)
}
