package dlock

import (
	"sort"

	"github.com/ValentinKolb/dlock/lib/coord"
)

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

func (c *Coordinator) SetAttr(node, name string, value []byte, version int32, mask EventMask) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	return c.setAttr(s, node, name, value, version, mask)
}

func (c *Coordinator) setAttr(s *session, node, name string, value []byte, version int32, mask EventMask) error {
	if err := checkPath(node); err != nil {
		return err
	}
	if len(value) > coord.MaxDataSize {
		return coord.ErrTooLarge
	}
	p := attrPath(node, name)

	ok, _, err := s.client.Exists(p)
	if err != nil {
		Logger.Debugf("set attr failed. node = %s, attr = %s: %v", node, name, err)
		return err
	}
	if ok {
		if _, err := s.client.Set(p, value, version); err != nil {
			Logger.Debugf("set attr val failed. node = %s, attr = %s: %v", node, name, err)
			return err
		}
	} else {
		_, err := s.client.Create(p, value, coord.FlagPersistent)
		if err != nil && !coord.IsStatus(err, coord.StatusNodeExists) {
			Logger.Debugf("create attr failed. node = %s, attr = %s: %v", node, name, err)
			return err
		}
	}
	Logger.Debugf("node %s set attr %s success", node, name)

	if err := c.setWatcher(s, p, mask); err != nil {
		Logger.Debugf("set watcher on attr %s failed: %v", p, err)
	}
	return nil
}

func (c *Coordinator) GetAttr(node, name string) ([]byte, int32, error) {
	s, err := c.handle()
	if err != nil {
		return nil, 0, err
	}
	return c.getAttr(s, node, name)
}

// getAttr reads an attribute. The reserved name "lock" reports "1" if the node
// is locked and "0" otherwise.
func (c *Coordinator) getAttr(s *session, node, name string) ([]byte, int32, error) {
	if err := checkPath(node); err != nil {
		return nil, 0, err
	}
	if name == lockAttrName {
		children, st, err := s.client.Children(lockDirOf(node))
		if err == nil && len(children) > 0 {
			return []byte("1"), st.Cversion, nil
		}
		return []byte("0"), 0, err
	}
	return c.getData(s, attrPath(node, name))
}

func (c *Coordinator) ListAttr(dir string) ([]Attr, error) {
	s, err := c.handle()
	if err != nil {
		return nil, err
	}
	if err := checkPath(dir); err != nil {
		return nil, err
	}
	children, _, err := s.client.Children(dir)
	if err != nil {
		Logger.Debugf("get children failed. node = %s: %v", dir, err)
		return nil, err
	}
	sort.Strings(children)

	var attrs []Attr
	for _, child := range children {
		if !isAttrNode(child) {
			continue
		}
		name := pureAttrName(child)
		value, _, err := c.getAttr(s, dir, name)
		if err != nil {
			Logger.Debugf("node get attr failed. node = %s, attr = %s: %v", dir, name, err)
			value = nil
		}
		attrs = append(attrs, Attr{Name: name, Value: value})
	}
	return attrs, nil
}

func (c *Coordinator) ListNode(dir string) ([]string, error) {
	s, err := c.handle()
	if err != nil {
		return nil, err
	}
	if err := checkPath(dir); err != nil {
		return nil, err
	}
	children, _, err := s.client.Children(dir)
	if err != nil {
		Logger.Debugf("get children failed. node = %s: %v", dir, err)
		return nil, err
	}
	nodes := make([]string, 0, len(children))
	for _, child := range children {
		if !isAttrNode(child) {
			nodes = append(nodes, child)
		}
	}
	sort.Strings(nodes)
	return nodes, nil
}

// --------------------------------------------------------------------------
// Raw data
// --------------------------------------------------------------------------

func (c *Coordinator) SetData(node string, value []byte, version int32) error {
	s, err := c.handle()
	if err != nil {
		return err
	}
	if err := checkPath(node); err != nil {
		return err
	}
	if len(value) > coord.MaxDataSize {
		return coord.ErrTooLarge
	}
	_, err = s.client.Set(node, value, version)
	return err
}

func (c *Coordinator) GetData(node string) ([]byte, int32, error) {
	s, err := c.handle()
	if err != nil {
		return nil, 0, err
	}
	if err := checkPath(node); err != nil {
		return nil, 0, err
	}
	return c.getData(s, node)
}

func (c *Coordinator) getData(s *session, p string) ([]byte, int32, error) {
	data, st, err := s.client.Get(p)
	if err != nil {
		return nil, 0, err
	}
	if len(data) > coord.MaxDataSize || st.DataLength > coord.MaxDataSize {
		Logger.Debugf("too long data length, exceed limits. node = %s", p)
		return nil, 0, coord.ErrTooLarge
	}
	return data, st.Version, nil
}

// --------------------------------------------------------------------------
// Processed marker
// --------------------------------------------------------------------------

type processedState uint8

const (
	notProcessed processedState = iota
	processed
	processedError
)

// processedFlag reports whether this session already reported the lock of node.
func (c *Coordinator) processedFlag(s *session, node string) processedState {
	value, _, err := c.getAttr(s, node, processedAttr)
	switch {
	case err == nil:
		if string(value) == s.id {
			return processed
		}
		return notProcessed
	case coord.IsStatus(err, coord.StatusNoNode):
		return notProcessed
	default:
		Logger.Errorf("get delt flag failed. node = %s: %v", node, err)
		return processedError
	}
}

func (c *Coordinator) setProcessed(s *session, node string) {
	if err := c.setAttr(s, node, processedAttr, []byte(s.id), coord.AnyVersion, EventMaskNone); err != nil {
		Logger.Errorf("set delt flag failed. node = %s: %v", node, err)
	}
}

// clearProcessed resets the marker of node if it carries this session, so the
// next acquisition by this session is reported again.
func (c *Coordinator) clearProcessed(s *session, node string) {
	p := attrPath(node, processedAttr)
	value, st, err := s.client.Get(p)
	if err != nil || string(value) != s.id {
		return
	}
	if _, err := s.client.Set(p, nil, st.Version); err != nil && !coord.IsStatus(err, coord.StatusBadVersion) {
		Logger.Debugf("clear delt flag failed. node = %s: %v", node, err)
	}
}
