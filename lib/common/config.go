package common

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

const (
	DefaultServers        = "127.0.0.1:2181"
	DefaultSessionTimeout = 5 * time.Second
)

// ClientConfig holds everything needed to open a coordination session.
type ClientConfig struct {
	// Servers is the list of ZooKeeper endpoints (host:port), an optional chroot
	// suffix on the last endpoint is not supported.
	Servers []string
	// SessionTimeout bounds the initial connect and sizes the session timeout.
	SessionTimeout time.Duration
	// Auth is an optional digest credential in the form "user:password".
	Auth string
	// LogLevel is the level at which logs will be output (debug, info, warn, error).
	LogLevel string
}

// ParseServers splits a comma separated endpoint list and drops empty entries.
func ParseServers(servers string) []string {
	var out []string
	for _, s := range strings.Split(servers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that the configuration can be used to dial a session.
func (c *ClientConfig) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", c.SessionTimeout)
	}
	if c.Auth != "" && !strings.Contains(c.Auth, ":") {
		return fmt.Errorf("auth must be in the form user:password")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *ClientConfig) String() string {
	auth := "none"
	if c.Auth != "" {
		auth = "digest"
	}
	return fmt.Sprintf(`Client Config:
    - Servers: %s
    - Session Timeout: %s
    - Auth: %s
    - Log Level: %s`,
		strings.Join(c.Servers, ","), c.SessionTimeout, auth, c.LogLevel)
}
