package dlock

// BaseListener implements IListener by logging the events worth logging.
// Embed it and override the methods you need.
type BaseListener struct{}

var _ IListener = BaseListener{}

func (BaseListener) AttrChange(node, attr string) {
	Logger.Infof("node's attr changed. node = %s, attr = %s", node, attr)
}

func (BaseListener) NodeDel(string) {}

func (BaseListener) DataChange(string, []byte) {}

func (BaseListener) ChildEvent(string) {}

func (BaseListener) ChildChange(node, child string) {
	Logger.Infof("child add: node = %s, child = %s", node, child)
}

func (BaseListener) LockAcquired(node string) {
	Logger.Infof("node acquired lock. node = %s", node)
}

func (BaseListener) LockReleased(node string) {
	Logger.Infof("node lose lock. node = %s", node)
}

func (BaseListener) NodeCreate(string) {}

func (BaseListener) SessionExpired() {
	Logger.Infof("session expired")
}

func (BaseListener) SessionReConnected() {
	Logger.Infof("session re-connected")
}

// nopListener stands in when Init was called without a listener.
type nopListener struct{}

func (nopListener) AttrChange(string, string)  {}
func (nopListener) NodeDel(string)             {}
func (nopListener) DataChange(string, []byte)  {}
func (nopListener) ChildEvent(string)          {}
func (nopListener) ChildChange(string, string) {}
func (nopListener) LockAcquired(string)        {}
func (nopListener) LockReleased(string)        {}
func (nopListener) NodeCreate(string)          {}
func (nopListener) SessionExpired()            {}
func (nopListener) SessionReConnected()        {}
