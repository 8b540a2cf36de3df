package dlock

import (
	"github.com/ValentinKolb/dlock/lib/coord"
)

// --------------------------------------------------------------------------
// Node operations
// --------------------------------------------------------------------------

func (c *Coordinator) MkDir(dir string, mask EventMask) error {
	return c.CreateNode(dir, mask, false)
}

func (c *Coordinator) CreateNode(path string, mask EventMask, ephemeral bool) error {
	return c.CreateNodeWithVal(path, mask, nil, ephemeral)
}

func (c *Coordinator) CreateNodeWithVal(path string, mask EventMask, val []byte, ephemeral bool) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	return c.createNode(s, path, mask, val, ephemeral)
}

func (c *Coordinator) createNode(s *session, path string, mask EventMask, val []byte, ephemeral bool) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if len(val) > coord.MaxDataSize {
		return coord.ErrTooLarge
	}
	flags := coord.FlagPersistent
	if ephemeral {
		flags = coord.FlagEphemeral
	}

	_, err := s.client.Create(path, val, flags)
	if err != nil && !coord.IsStatus(err, coord.StatusNodeExists) {
		Logger.Errorf("create node failed. node = %s: %v", path, err)
		return err
	}
	if err := c.setWatcher(s, path, mask); err != nil {
		Logger.Debugf("set watcher on %s failed: %v", path, err)
	}
	return nil
}

func (c *Coordinator) Unlink(node string) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	if err := checkPath(node); err != nil {
		return err
	}
	return c.unlink(s, node)
}

// unlink deletes node depth first. Nodes that vanish concurrently count as deleted.
func (c *Coordinator) unlink(s *session, node string) error {
	children, _, err := s.client.Children(node)
	if err != nil {
		if coord.IsStatus(err, coord.StatusNoNode) {
			return nil
		}
		Logger.Debugf("get node's children failed. node = %s: %v", node, err)
		return err
	}
	for _, child := range children {
		if err := c.unlink(s, node+"/"+child); err != nil {
			return err
		}
	}
	err = s.client.Delete(node, coord.AnyVersion)
	if err != nil && !coord.IsStatus(err, coord.StatusNoNode) {
		Logger.Debugf("unlink node failed. node = %s: %v", node, err)
		return err
	}
	Logger.Debugf("unlink node success. node = %s", node)
	return nil
}

func (c *Coordinator) Exists(node string) (bool, error) {
	s, err := c.handle()
	if err != nil {
		return false, err
	}
	if err := checkPath(node); err != nil {
		return false, err
	}
	ok, _, err := s.client.Exists(node)
	return ok, err
}

// --------------------------------------------------------------------------
// Watches
// --------------------------------------------------------------------------

func (c *Coordinator) SetWatcher(node string, mask EventMask) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	if err := checkPath(node); err != nil {
		return err
	}
	return c.setWatcher(s, node, mask)
}

// setWatcher arms the watches selected by mask. Session masks need no watch,
// session transitions are always delivered.
func (c *Coordinator) setWatcher(s *session, node string, mask EventMask) error {
	if mask&EventMaskAttrChanged != 0 {
		children, _, err := s.client.Children(node)
		if err != nil {
			Logger.Errorf("get child failed. node = %s: %v", node, err)
			return err
		}
		for _, child := range children {
			if !isAttrNode(child) {
				continue
			}
			if _, _, err := s.getW(node + "/" + child); err != nil {
				Logger.Errorf("zoo get failed. node = %s/%s: %v", node, child, err)
				return err
			}
		}
		Logger.Debugf("set attr-changed watcher success. node = %s", node)
	}

	if mask&EventMaskChildChanged != 0 {
		children, err := s.childrenW(node)
		if err == nil {
			s.added(node, children)
		}
		Logger.Debugf("set watcher child add: node = %s", node)
	}

	if mask&EventMaskDataChanged != 0 {
		if _, _, err := s.getW(node); err != nil {
			Logger.Debugf("set data change watch on node failed. node = %s: %v", node, err)
			return err
		}
	}

	if mask&EventMaskNodeEvent != 0 {
		if _, err := s.existsW(node); err != nil {
			Logger.Debugf("set exist watch on node failed. node = %s: %v", node, err)
			return err
		}
	}

	if mask&(EventMaskLockAcquired|EventMaskLockRelease) != 0 {
		return c.setLockWatcher(s, node, mask)
	}
	return nil
}

func (c *Coordinator) setLockWatcher(s *session, node string, mask EventMask) error {
	dir := lockDirOf(node)
	ok, _, err := s.client.Exists(dir)
	if err != nil {
		return err
	}

	if !ok {
		if err := c.createNode(s, dir, EventMaskNone, nil, false); err != nil {
			Logger.Debugf("create node failed. node = %s: %v", dir, err)
			return err
		}
		if _, err := s.childrenW(dir); err != nil {
			Logger.Errorf("get children failed. node = %s: %v", dir, err)
			return err
		}
		Logger.Debugf("set child watch on node success. node = %s", dir)
		return nil
	}

	if mask&EventMaskLockAcquired != 0 {
		if _, err := s.childrenW(dir); err != nil {
			Logger.Errorf("get child failed. node = %s: %v", dir, err)
			return err
		}
		Logger.Debugf("set lock acquired watch on node success. node = %s", dir)
	}
	if mask&EventMaskLockRelease != 0 {
		children, err := s.childrenW(dir)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			sortContenders(children)
			holder := dir + "/" + children[0]
			if _, err := s.existsW(holder); err != nil {
				Logger.Errorf("zoo exist set lock failed. path = %s: %v", holder, err)
				return err
			}
			Logger.Debugf("set watcher on node success. node = %s", holder)
		}
	}
	return nil
}
