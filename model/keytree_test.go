package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/model"
)

func TestBuildKeyTreeShape(t *testing.T) {
	keys := []string{"user:1:name", "user:1:age", "user:2:name", "session:abc"}
	tree := model.BuildKeyTree(keys, ":")

	user, ok := tree.Root.Children["user"]
	require.True(t, ok)
	require.False(t, user.IsLeaf)
	require.Len(t, user.Children, 2)

	one := user.Children["1"]
	require.NotNil(t, one)
	require.Contains(t, one.Children, "name")
	require.Contains(t, one.Children, "age")
	require.True(t, one.Children["name"].IsLeaf)
	require.Equal(t, "user:1:name", one.Children["name"].Key)

	session, ok := tree.Root.Children["session"]
	require.True(t, ok)
	require.True(t, session.Children["abc"].IsLeaf)
}

func TestKeyTreeLeavesArePermutationOfFlatList(t *testing.T) {
	keys := []string{"a:b", "a:c", "d", "a:b:c"}
	tree := model.BuildKeyTree(keys, ":")
	leaves := tree.Leaves()

	require.ElementsMatch(t, keys, leaves)
}

func TestHistoryAddDedupsAndIgnoresBlank(t *testing.T) {
	h := &model.History{}
	for i := 0; i < 25; i++ {
		h.Add("term")
	}
	require.Equal(t, []string{"term"}, h.Terms)

	h2 := &model.History{Terms: []string{"b", "a"}}
	h2.Add("a")
	require.Equal(t, []string{"a", "b"}, h2.Terms)

	h2.Add("  ")
	require.Equal(t, []string{"a", "b"}, h2.Terms)
}

func TestHistoryAddCapsAt20(t *testing.T) {
	h := &model.History{}
	for i := 0; i < 25; i++ {
		h.Add(string(rune('a' + i%25)))
	}
	require.Len(t, h.Terms, 20)
}
