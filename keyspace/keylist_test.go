package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/command"
)

func TestNewKeyListStartsEmpty(t *testing.T) {
	l := NewKeyList(2)
	assert.Empty(t, l.Keys)
	assert.Equal(t, []uint64{0, 0}, l.Cursors)
	assert.NotNil(t, l.Tree)
}

func TestAppendPagesDedupesAndRebuildsTree(t *testing.T) {
	l := NewKeyList(2)
	l.appendPages([]command.ScanPage{
		{Cursor: 5, Keys: []string{"user:1", "user:2"}},
		{Cursor: 0, Keys: []string{"user:1", "session:1"}},
	})

	require.ElementsMatch(t, []string{"user:1", "user:2", "session:1"}, l.Keys)
	assert.Equal(t, []uint64{5, 0}, l.Cursors)
	assert.ElementsMatch(t, []string{"user:1", "user:2", "session:1"}, l.Tree.Leaves())
}

func TestAppendPagesSecondCallOnlyAddsNewKeys(t *testing.T) {
	l := NewKeyList(1)
	l.appendPages([]command.ScanPage{{Cursor: 3, Keys: []string{"a", "b"}}})
	l.appendPages([]command.ScanPage{{Cursor: 0, Keys: []string{"b", "c"}}})

	assert.Equal(t, []string{"a", "b", "c"}, l.Keys)
}

func TestAllCursorsZero(t *testing.T) {
	l := NewKeyList(2)
	assert.True(t, l.allCursorsZero())

	l.Cursors = []uint64{0, 3}
	assert.False(t, l.allCursorsZero())

	l.Cursors = []uint64{0, 0}
	assert.True(t, l.allCursorsZero())
}

func TestResetClearsKeysCursorsAndKeyword(t *testing.T) {
	l := NewKeyList(1)
	l.appendPages([]command.ScanPage{{Cursor: 4, Keys: []string{"a"}}})
	l.Keyword = "old"

	l.reset("new")

	assert.Empty(t, l.Keys)
	assert.Equal(t, []uint64{0}, l.Cursors)
	assert.Equal(t, "new", l.Keyword)
	assert.Empty(t, l.Tree.Leaves())
}

func TestScanPattern(t *testing.T) {
	assert.Equal(t, "*", scanPattern(""))
	assert.Equal(t, "*session*", scanPattern("session"))
}
