package dlock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
)

// lockRetries bounds the attempts of the directory and entry steps of Lock on connection loss.
const lockRetries = 3

// withRetry runs fn up to lockRetries times while it fails with connection loss.
func withRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= lockRetries; attempt++ {
		if err = fn(); !coord.IsStatus(err, coord.StatusConnectionLoss) {
			return err
		}
		Logger.Debugf("connection loss, attempt %d/%d", attempt, lockRetries)
	}
	return err
}

// --------------------------------------------------------------------------
// Lock
// --------------------------------------------------------------------------

func (c *Coordinator) Lock(ctx context.Context, node string, blocking bool) error {
	start := time.Now()
	err := c.lock(ctx, node, blocking)

	switch {
	case err == nil:
		lockAcquireTotal.WithLabelValues("acquired").Inc()
		lockWaitDuration.Observe(time.Since(start).Seconds())
	case errors.Is(err, coord.ErrLockBusy):
		lockAcquireTotal.WithLabelValues("busy").Inc()
	case ctx.Err() != nil:
		lockAcquireTotal.WithLabelValues("cancelled").Inc()
	default:
		lockAcquireTotal.WithLabelValues("error").Inc()
	}
	return err
}

func (c *Coordinator) lock(ctx context.Context, node string, blocking bool) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	if err := checkPath(node); err != nil {
		return err
	}
	dir := lockDirOf(node)

	if err := withRetry(func() error { return ensureLockDir(s, dir) }); err != nil {
		Logger.Debugf("create lock node failed, node = %s: %v", node, err)
		return err
	}

	for {
		entry, err := c.ensureEntry(s, dir)
		if err != nil {
			return err
		}

		var children []string
		err = withRetry(func() error {
			var err error
			children, _, err = s.client.Children(dir)
			return err
		})
		if err != nil {
			Logger.Debugf("get children failed. node = %s: %v", dir, err)
			return err
		}
		sortContenders(children)

		pred, found := predecessorOf(children, entry)
		if !found {
			return coord.Errorf(coord.StatusNoNode, "lock entry %s/%s vanished", dir, entry)
		}

		if pred == "" {
			own := dir + "/" + entry
			Logger.Debugf("get the lock: %s", own)
			if _, err := s.existsW(own); err != nil {
				Logger.Debugf("listen on the lock failed. node = %s: %v", own, err)
				return err
			}
			s.post(task{kind: taskLockAcquired, node: node})
			return nil
		}

		predPath := dir + "/" + pred
		if !blocking {
			// one routed watch per predecessor, its deletion reaches the listener as a release
			ok, err := s.existsW(predPath)
			if err != nil {
				Logger.Debugf("watch predecessor failed. path = %s: %v", predPath, err)
				return err
			}
			if !ok {
				continue
			}
			return coord.ErrLockBusy
		}

		ok, _, ch, err := s.client.ExistsW(predPath)
		if err != nil {
			Logger.Debugf("watch predecessor failed. path = %s: %v", predPath, err)
			return err
		}
		if !ok {
			// predecessor left between listing and watching
			continue
		}

		Logger.Debugf("watch at predecessor %s", predPath)
		select {
		case ev := <-ch:
			if ev.Type == coord.EventNotWatching {
				if _, err := c.handle(); err != nil {
					return err
				}
				if ev.Err != nil {
					return ev.Err
				}
				return coord.ErrConnectionLoss
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		if cur, err := c.handle(); err != nil {
			return err
		} else if cur != s {
			return coord.ErrUnavailable
		}
	}
}

// ensureLockDir creates the lock directory unless it exists.
func ensureLockDir(s *session, dir string) error {
	ok, _, err := s.client.Exists(dir)
	if err != nil || ok {
		return err
	}
	_, err = s.client.Create(dir, nil, coord.FlagPersistent)
	if err != nil && !coord.IsStatus(err, coord.StatusNodeExists) {
		return err
	}
	return nil
}

// ensureEntry returns the contender of this session in dir and creates it if
// missing. The directory is listed again on every attempt so a create that
// succeeded before the connection broke is not repeated.
func (c *Coordinator) ensureEntry(s *session, dir string) (string, error) {
	prefix := s.id + "-"
	var entry string
	err := withRetry(func() error {
		children, _, err := s.client.Children(dir)
		if err != nil {
			return err
		}
		if name, ok := entryOf(children, prefix); ok {
			entry = name
			return nil
		}
		created, err := s.client.Create(dir+"/"+prefix, nil, coord.FlagEphemeral|coord.FlagSequence)
		if err != nil {
			return err
		}
		entry, err = baseName(created)
		return err
	})
	if err != nil {
		Logger.Debugf("can't create lock entry in %s: %v", dir, err)
	}
	return entry, err
}

// --------------------------------------------------------------------------
// IsLocked / UnLock
// --------------------------------------------------------------------------

func (c *Coordinator) IsLocked(node string) (bool, error) {
	s, err := c.handle()
	if err != nil {
		return false, err
	}
	if err := checkPath(node); err != nil {
		return false, err
	}
	return c.isLocked(s, node)
}

// isLocked reports whether the lock directory of node has a contender and
// keeps a child watch on the directory and an exists watch on the holder.
func (c *Coordinator) isLocked(s *session, node string) (bool, error) {
	dir := lockDirOf(node)
	children, err := s.childrenW(dir)
	if err != nil {
		if coord.IsStatus(err, coord.StatusNoNode) {
			return false, nil
		}
		Logger.Debugf("get node's lock children failed. node = %s: %v", node, err)
		return false, err
	}
	if len(children) == 0 {
		Logger.Debugf("%s is not locked", node)
		return false, nil
	}

	sortContenders(children)
	holder := dir + "/" + children[0]
	ok, err := s.existsW(holder)
	if err != nil {
		Logger.Debugf("set lock exist watch failed. node = %s: %v", holder, err)
		return false, err
	}
	return ok, nil
}

func (c *Coordinator) UnLock(node string) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	if err := checkPath(node); err != nil {
		return err
	}
	dir := lockDirOf(node)

	children, _, err := s.client.Children(dir)
	if err != nil {
		if coord.IsStatus(err, coord.StatusNoNode) {
			Logger.Debugf("the node has not been locked. node = %s", node)
			return nil
		}
		Logger.Debugf("unlock node = %s failed: %v", node, err)
		return err
	}
	if len(children) == 0 {
		return nil
	}

	sortContenders(children)
	if !strings.HasPrefix(children[0], s.id+"-") {
		Logger.Debugf("you don't own the lock. node = %s", node)
		return coord.ErrNoAuth
	}

	c.clearProcessed(s, node)

	entry := dir + "/" + children[0]
	if err := s.client.Delete(entry, coord.AnyVersion); err != nil && !coord.IsStatus(err, coord.StatusNoNode) {
		Logger.Debugf("release lock node failed. node = %s: %v", entry, err)
		return err
	}
	lockReleaseTotal.Inc()
	Logger.Debugf("release lock node success. node = %s", entry)
	return nil
}
