// Package keyspace implements spec §4.12: the per-server flat key list,
// its derived tree, the SCAN loop that fills it, and the type-specific
// value loaders/savers built over the command package.
package keyspace

import (
	"context"

	"github.com/bigtree-zedis/zedis-core/clientmanager"
	"github.com/bigtree-zedis/zedis-core/command"
	"github.com/bigtree-zedis/zedis-core/events"
	"github.com/bigtree-zedis/zedis-core/model"
)

// scanPageSize is the COUNT hint passed to each master's SCAN call.
const scanPageSize = 200

// scanResponsivenessCap is the "≥ 1,000 keys collected since scan start" UI
// responsiveness cap of spec §4.12.
const scanResponsivenessCap = 1000

// KeyList is the per-server key list state of spec §4.12: a deduped,
// insertion-ordered flat list, the fan-out cursor vector, the active
// keyword filter, and the tree derived from the flat list.
type KeyList struct {
	Keys    []string
	Tree    *model.KeyTree
	Cursors []uint64
	Keyword string
	Loading bool

	seen map[string]struct{}
}

// NewKeyList builds an empty list sized for masterCount fan-out cursors.
func NewKeyList(masterCount int) *KeyList {
	return &KeyList{
		Cursors: make([]uint64, masterCount),
		seen:    map[string]struct{}{},
		Tree:    model.BuildKeyTree(nil, ""),
	}
}

// reset clears accumulated keys and cursors for a fresh scan, keeping the
// masterCount shape. Spec §4.12: "a keyword change resets the cursor and
// clears accumulated items."
func (l *KeyList) reset(keyword string) {
	l.Keys = nil
	l.seen = map[string]struct{}{}
	l.Cursors = make([]uint64, len(l.Cursors))
	l.Keyword = keyword
	l.Tree = model.BuildKeyTree(nil, "")
}

func (l *KeyList) appendPages(pages []command.ScanPage) {
	for i, p := range pages {
		if i < len(l.Cursors) {
			l.Cursors[i] = p.Cursor
		}
		for _, k := range p.Keys {
			if _, ok := l.seen[k]; ok {
				continue
			}
			l.seen[k] = struct{}{}
			l.Keys = append(l.Keys, k)
		}
	}
	l.Tree = model.BuildKeyTree(l.Keys, "")
}

func (l *KeyList) allCursorsZero() bool {
	for _, c := range l.Cursors {
		if c != 0 {
			return false
		}
	}
	return true
}

func scanPattern(keyword string) string {
	if keyword == "" {
		return "*"
	}
	return "*" + keyword + "*"
}

// Scan runs the full scan loop of spec §4.12 for serverID on a fresh
// KeyList filtered by keyword; ScanMore continues an existing list from its
// cursor vector. The loop terminates when every master's cursor
// reaches zero or scanResponsivenessCap keys have been collected since the
// loop started, emitting KeyScanStarted once, KeyScanPaged per page, and
// KeyScanFinished once, in that order.
func Scan(ctx context.Context, bus *events.Bus, client *clientmanager.Client, serverID string, keyword string) (*KeyList, error) {
	return scanList(ctx, bus, client, serverID, NewKeyList(len(client.MasterConns)), keyword)
}

// ScanMore continues an existing list's scan with its current keyword,
// i.e. the "explicit scan more request" case of spec §4.12.
func ScanMore(ctx context.Context, bus *events.Bus, client *clientmanager.Client, serverID string, list *KeyList) (*KeyList, error) {
	return scanList(ctx, bus, client, serverID, list, list.Keyword)
}

func scanList(ctx context.Context, bus *events.Bus, client *clientmanager.Client, serverID string, list *KeyList, keyword string) (*KeyList, error) {
	if keyword != list.Keyword {
		list.reset(keyword)
	}

	list.Loading = true
	bus.Publish(events.KeyScanStarted{ID: serverID})

	pattern := scanPattern(list.Keyword)
	collected := 0

	for {
		pages, err := command.Scan(ctx, client, list.Cursors, pattern, scanPageSize)
		if err != nil {
			list.Loading = false
			bus.Publish(events.NewErrorOccurred(err))
			return list, err
		}

		before := len(list.Keys)
		list.appendPages(pages)
		collected += len(list.Keys) - before

		bus.Publish(events.KeyScanPaged{ID: serverID})

		if list.allCursorsZero() || collected >= scanResponsivenessCap {
			break
		}
	}

	list.Loading = false
	bus.Publish(events.KeyScanFinished{ID: serverID})
	return list, nil
}
