package zkclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/go-zookeeper/zk"
)

func TestConvertError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected coord.Status
	}{
		{name: "nil", err: nil, expected: coord.StatusOK},
		{name: "no node", err: zk.ErrNoNode, expected: coord.StatusNoNode},
		{name: "node exists", err: zk.ErrNodeExists, expected: coord.StatusNodeExists},
		{name: "no auth", err: zk.ErrNoAuth, expected: coord.StatusNoAuth},
		{name: "bad version", err: zk.ErrBadVersion, expected: coord.StatusBadVersion},
		{name: "not empty", err: zk.ErrNotEmpty, expected: coord.StatusNotEmpty},
		{name: "expired", err: zk.ErrSessionExpired, expected: coord.StatusSessionExpired},
		{name: "connection closed", err: zk.ErrConnectionClosed, expected: coord.StatusConnectionLoss},
		{name: "wrapped", err: fmt.Errorf("op: %w", zk.ErrNoNode), expected: coord.StatusNoNode},
		{name: "unknown", err: errors.New("boom"), expected: coord.StatusSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coord.StatusOf(convertError(tt.err, "/p")); got != tt.expected {
				t.Errorf("convertError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConvertState(t *testing.T) {
	tests := []struct {
		in       zk.State
		expected coord.State
	}{
		{zk.StateHasSession, coord.StateConnected},
		{zk.StateConnected, coord.StateConnecting},
		{zk.StateConnecting, coord.StateConnecting},
		{zk.StateExpired, coord.StateExpired},
		{zk.StateAuthFailed, coord.StateAuthFailed},
		{zk.StateDisconnected, coord.StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			if got := convertState(tt.in); got != tt.expected {
				t.Errorf("convertState(%v) = %v, want %v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestConvertEvent(t *testing.T) {
	ev := convertEvent(zk.Event{Type: zk.EventNodeDeleted, State: zk.StateHasSession, Path: "/a"})
	if ev.Type != coord.EventNodeDeleted || ev.State != coord.StateConnected || ev.Path != "/a" {
		t.Errorf("unexpected event %+v", ev)
	}

	ev = convertEvent(zk.Event{Type: zk.EventNotWatching, Err: zk.ErrSessionExpired})
	if ev.Type != coord.EventNotWatching || !errors.Is(ev.Err, coord.ErrSessionExpired) {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestWatchTranslation(t *testing.T) {
	in := make(chan zk.Event, 1)
	in <- zk.Event{Type: zk.EventNodeChildrenChanged, Path: "/l"}
	close(in)

	out := watch(in)
	ev, ok := <-out
	if !ok || ev.Type != coord.EventNodeChildrenChanged || ev.Path != "/l" {
		t.Errorf("unexpected event %+v", ev)
	}
	if _, ok := <-out; ok {
		t.Error("translated channel should be closed")
	}
}

func TestConvertStat(t *testing.T) {
	if convertStat(nil) != nil {
		t.Error("nil stat should stay nil")
	}
	st := convertStat(&zk.Stat{Version: 3, NumChildren: 2, EphemeralOwner: 7})
	if st.Version != 3 || st.NumChildren != 2 || st.EphemeralOwner != 7 {
		t.Errorf("unexpected stat %+v", st)
	}
}
