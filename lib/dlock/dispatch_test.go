package dlock

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/coord/memcoord"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicatedLockAcquired(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	holder := newCoordinator(t, srv, l)
	require.NoError(t, holder.MkDir("/dd", EventMaskNone))
	require.NoError(t, holder.SetWatcher("/dd", EventMaskLockAcquired))

	require.NoError(t, holder.Lock(context.Background(), "/dd", true))
	l.waitFor(t, "acquired /dd")

	before := testutil.ToFloat64(duplicateSuppressedTotal)

	// unrelated contenders change the lock directory of the held lock
	for i := 0; i < 3; i++ {
		other := newCoordinator(t, srv, nil)
		require.ErrorIs(t, other.Lock(context.Background(), "/dd", false), coord.ErrLockBusy)
		l.waitFor(t, "children /dd/zoo_attr_lock")
	}
	l.never(t, "acquired /dd", 100*time.Millisecond)
	assert.Greater(t, testutil.ToFloat64(duplicateSuppressedTotal), before)

	// the next acquisition by the same session is reported again
	require.NoError(t, holder.UnLock("/dd"))
	l.waitFor(t, "released /dd")
}

func TestReacquireIsReported(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	c := newCoordinator(t, srv, l)
	require.NoError(t, c.MkDir("/again", EventMaskNone))

	for i := 0; i < 2; i++ {
		require.NoError(t, c.Lock(context.Background(), "/again", true))
		l.waitFor(t, "acquired /again")
		require.NoError(t, c.UnLock("/again"))
		l.waitFor(t, "released /again")
	}
}

func TestAttrChangeEvents(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, writer.MkDir("/cfg", EventMaskNone))
	require.NoError(t, writer.SetAttr("/cfg", "mode", []byte("a"), coord.AnyVersion, EventMaskNone))
	require.NoError(t, watcher.SetWatcher("/cfg", EventMaskAttrChanged))

	require.NoError(t, writer.SetAttr("/cfg", "mode", []byte("b"), coord.AnyVersion, EventMaskNone))
	l.waitFor(t, "data /cfg/zoo_attr_mode b")
	l.waitFor(t, "attr /cfg mode")

	// the data watch was re-armed by the dispatcher
	require.NoError(t, writer.SetAttr("/cfg", "mode", []byte("c"), coord.AnyVersion, EventMaskNone))
	l.waitFor(t, "attr /cfg mode")
}

func TestDataChangeEvent(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, writer.CreateNodeWithVal("/val", EventMaskNone, []byte("1"), false))
	require.NoError(t, watcher.SetWatcher("/val", EventMaskDataChanged))
	require.NoError(t, writer.SetData("/val", []byte("2"), coord.AnyVersion))
	l.waitFor(t, "data /val 2")

	require.NoError(t, writer.Unlink("/val"))
	l.waitFor(t, "deleted /val")
}

func TestNodeCreatedEvent(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, watcher.SetWatcher("/later", EventMaskNodeEvent))
	require.NoError(t, writer.MkDir("/later", EventMaskNone))
	l.waitFor(t, "created /later")
}

func TestChildChangeEvents(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, writer.MkDir("/p", EventMaskNone))
	require.NoError(t, writer.MkDir("/p/old", EventMaskNone))
	require.NoError(t, watcher.SetWatcher("/p", EventMaskChildChanged))

	require.NoError(t, writer.MkDir("/p/new", EventMaskNone))
	l.waitFor(t, "children /p")
	l.waitFor(t, "child /p new")
}

func TestLockedChildIsReported(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	monitor := newCoordinator(t, srv, l)
	worker := newCoordinator(t, srv, nil)

	require.NoError(t, worker.MkDir("/jobs", EventMaskNone))
	require.NoError(t, monitor.SetWatcher("/jobs", EventMaskChildChanged))

	require.NoError(t, worker.MkDir("/jobs/j1", EventMaskNone))
	require.NoError(t, worker.Lock(context.Background(), "/jobs/j1", true))
	l.waitFor(t, "child /jobs j1")
	l.waitFor(t, "acquired /jobs/j1")
}

func TestLockReleaseWatch(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	monitor := newCoordinator(t, srv, l)
	holder := newCoordinator(t, srv, nil)

	require.NoError(t, holder.MkDir("/lr", EventMaskNone))
	require.NoError(t, holder.Lock(context.Background(), "/lr", true))
	require.NoError(t, monitor.SetWatcher("/lr", EventMaskLockRelease))

	require.NoError(t, holder.UnLock("/lr"))
	l.waitFor(t, "released /lr")
}

func TestEventsOfReplacedSessionAreDropped(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	c := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, writer.MkDir("/old", EventMaskNone))
	require.NoError(t, c.SetWatcher("/old", EventMaskDataChanged))
	require.NoError(t, c.Init("memcoord", l, time.Second))

	require.NoError(t, writer.SetData("/old", []byte("x"), coord.AnyVersion))
	l.never(t, "data /old x", 100*time.Millisecond)
}

func TestChildWatchReportsDeletion(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	require.NoError(t, watcher.MkDir("/cw", EventMaskChildChanged))
	require.NoError(t, writer.Unlink("/cw"))
	l.waitFor(t, "deleted /cw")
}

func TestDeletionReportedOnce(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	watcher := newCoordinator(t, srv, l)
	writer := newCoordinator(t, srv, nil)

	// node and child slot both fire on the same deletion
	require.NoError(t, watcher.MkDir("/both", EventMaskChildChanged|EventMaskNodeEvent|EventMaskDataChanged))
	require.NoError(t, writer.Unlink("/both"))
	l.waitFor(t, "deleted /both")
	l.never(t, "deleted /both", 100*time.Millisecond)

	// a recreated node reports its next deletion again
	require.NoError(t, writer.MkDir("/both", EventMaskNone))
	require.NoError(t, watcher.SetWatcher("/both", EventMaskChildChanged))
	require.NoError(t, writer.Unlink("/both"))
	l.waitFor(t, "deleted /both")
}

func TestForcedReleaseIsReportedAgain(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	c := newCoordinator(t, srv, l)
	admin := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/fd", EventMaskNone))

	require.NoError(t, c.Lock(context.Background(), "/fd", true))
	l.waitFor(t, "acquired /fd")

	// another session removes the holder's entry
	entries, err := admin.ListNode("/fd/zoo_attr_lock")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, admin.Unlink("/fd/zoo_attr_lock/"+entries[0]))
	l.waitFor(t, "released /fd")

	require.NoError(t, c.Lock(context.Background(), "/fd", true))
	l.waitFor(t, "acquired /fd")
}

func TestBusyContenderWatchesPredecessorOnce(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	holder := newCoordinator(t, srv, nil)
	poller := newCoordinator(t, srv, l)
	require.NoError(t, holder.MkDir("/nb", EventMaskNone))
	require.NoError(t, holder.Lock(context.Background(), "/nb", true))

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, poller.Lock(context.Background(), "/nb", false), coord.ErrLockBusy)
	}

	require.NoError(t, holder.UnLock("/nb"))
	l.waitFor(t, "released /nb")
	l.never(t, "released /nb", 100*time.Millisecond)
}
