package common

import (
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseServers(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected []string
	}{
		{name: "single", in: "127.0.0.1:2181", expected: []string{"127.0.0.1:2181"}},
		{name: "list with spaces", in: "zk1:2181, zk2:2181 ,zk3:2181", expected: []string{"zk1:2181", "zk2:2181", "zk3:2181"}},
		{name: "empty entries", in: ",zk1:2181,,", expected: []string{"zk1:2181"}},
		{name: "empty", in: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseServers(tt.in)
			if len(got) != len(tt.expected) {
				t.Fatalf("ParseServers(%q) = %v, want %v", tt.in, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("ParseServers(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestClientConfigValidate(t *testing.T) {
	valid := func() ClientConfig {
		return ClientConfig{
			Servers:        []string{DefaultServers},
			SessionTimeout: DefaultSessionTimeout,
			LogLevel:       "info",
		}
	}

	tests := []struct {
		name    string
		modify  func(c *ClientConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *ClientConfig) {}},
		{name: "with auth", modify: func(c *ClientConfig) { c.Auth = "user:secret" }},
		{name: "no servers", modify: func(c *ClientConfig) { c.Servers = nil }, wantErr: true},
		{name: "zero timeout", modify: func(c *ClientConfig) { c.SessionTimeout = 0 }, wantErr: true},
		{name: "negative timeout", modify: func(c *ClientConfig) { c.SessionTimeout = -time.Second }, wantErr: true},
		{name: "auth without password", modify: func(c *ClientConfig) { c.Auth = "user" }, wantErr: true},
		{name: "bad log level", modify: func(c *ClientConfig) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected logger.LogLevel
	}{
		{"debug", logger.DEBUG},
		{"INFO", logger.INFO},
		{"", logger.INFO},
		{"warn", logger.WARNING},
		{"warning", logger.WARNING},
		{"error", logger.ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel(verbose) should fail")
	}
}
