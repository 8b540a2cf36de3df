package dlock

import "time"

// initFinishGrace bounds how long the dispatcher waits for Init to finish its
// post-connect work before deciding about the reconnect notification.
const initFinishGrace = 4000 * time.Millisecond

// sessionTimeoutFactor scales the Init timeout into the requested session timeout.
const sessionTimeoutFactor = 0.8

type initOptions struct {
	auth string
}

// InitOption configures a single Init call.
type InitOption func(*initOptions)

// WithAuth adds digest credentials ("user:password") to the session once it is connected.
func WithAuth(auth string) InitOption {
	return func(o *initOptions) { o.auth = auth }
}
