package dlock

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/coord/memcoord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRoundTrip(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/n", EventMaskNone))

	require.NoError(t, c.SetAttr("/n", "k", []byte("v"), coord.AnyVersion, EventMaskNone))
	value, version, err := c.GetAttr("/n", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))
	assert.Equal(t, int32(0), version)

	// update with the current version
	require.NoError(t, c.SetAttr("/n", "k", []byte("w"), version, EventMaskNone))

	// a stale version fails and leaves the value untouched
	err = c.SetAttr("/n", "k", []byte("x"), version, EventMaskNone)
	assert.ErrorIs(t, err, coord.ErrBadVersion)
	value, version, err = c.GetAttr("/n", "k")
	require.NoError(t, err)
	assert.Equal(t, "w", string(value))
	assert.Equal(t, int32(1), version)

	_, _, err = c.GetAttr("/n", "missing")
	assert.ErrorIs(t, err, coord.ErrNoNode)
}

func TestAttrLimits(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/big", EventMaskNone))

	tooLarge := bytes.Repeat([]byte{'x'}, coord.MaxDataSize+1)
	assert.ErrorIs(t, c.SetAttr("/big", "k", tooLarge, coord.AnyVersion, EventMaskNone), coord.ErrTooLarge)
	assert.ErrorIs(t, c.SetData("/big", tooLarge, coord.AnyVersion), coord.ErrTooLarge)

	exact := bytes.Repeat([]byte{'x'}, coord.MaxDataSize)
	require.NoError(t, c.SetAttr("/big", "k", exact, coord.AnyVersion, EventMaskNone))
	value, _, err := c.GetAttr("/big", "k")
	require.NoError(t, err)
	assert.Len(t, value, coord.MaxDataSize)

	assert.ErrorIs(t, c.SetAttr("no-slash", "k", nil, coord.AnyVersion, EventMaskNone), coord.ErrBadPath)
}

func TestLockAttr(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/la", EventMaskNone))

	value, _, err := c.GetAttr("/la", "lock")
	assert.ErrorIs(t, err, coord.ErrNoNode)
	assert.Equal(t, "0", string(value))

	require.NoError(t, c.MkDir("/la/zoo_attr_lock", EventMaskNone))
	value, _, err = c.GetAttr("/la", "lock")
	require.NoError(t, err)
	assert.Equal(t, "0", string(value))
}

func TestListAttrAndNode(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/d", EventMaskNone))
	require.NoError(t, c.MkDir("/d/b", EventMaskNone))
	require.NoError(t, c.MkDir("/d/a", EventMaskNone))
	require.NoError(t, c.SetAttr("/d", "color", []byte("red"), coord.AnyVersion, EventMaskNone))
	require.NoError(t, c.SetAttr("/d", "size", []byte("xl"), coord.AnyVersion, EventMaskNone))

	nodes, err := c.ListNode("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, nodes)

	attrs, err := c.ListAttr("/d")
	require.NoError(t, err)
	assert.Equal(t, []Attr{
		{Name: "color", Value: []byte("red")},
		{Name: "size", Value: []byte("xl")},
	}, attrs)

	_, err = c.ListNode("/nope")
	assert.ErrorIs(t, err, coord.ErrNoNode)
}

func TestRawData(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	require.NoError(t, c.CreateNodeWithVal("/raw", EventMaskNone, []byte("one"), false))

	value, version, err := c.GetData("/raw")
	require.NoError(t, err)
	assert.Equal(t, "one", string(value))

	require.NoError(t, c.SetData("/raw", []byte("two"), version))
	assert.ErrorIs(t, c.SetData("/raw", []byte("three"), version), coord.ErrBadVersion)

	value, _, err = c.GetData("/raw")
	require.NoError(t, err)
	assert.Equal(t, "two", string(value))
}

func TestNodeOperations(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)

	require.NoError(t, c.MkDir("/tree", EventMaskNone))
	require.NoError(t, c.MkDir("/tree", EventMaskNone), "an existing node counts as created")
	require.NoError(t, c.MkDir("/tree/a", EventMaskNone))
	require.NoError(t, c.CreateNode("/tree/a/e", EventMaskNone, true))
	require.NoError(t, c.SetAttr("/tree/a", "k", []byte("v"), coord.AnyVersion, EventMaskNone))

	assert.ErrorIs(t, c.MkDir("/absent/child", EventMaskNone), coord.ErrNoNode)

	ok, err := c.Exists("/tree/a/e")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Unlink("/tree"))
	ok, err = c.Exists("/tree")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Unlink("/tree"), "unlinking a missing node is a no-op")
}
