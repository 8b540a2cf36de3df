package util

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ValentinKolb/dlock/lib/common"
	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/coord/zkclient"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}

	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

// SetupClientFlags adds the session flags to a command group
func SetupClientFlags(cmd *cobra.Command) {
	key := "servers"
	cmd.PersistentFlags().String(key, common.DefaultServers, WrapString("Comma separated list of ZooKeeper endpoints (host:port)"))

	key = "session-timeout"
	cmd.PersistentFlags().Int(key, int(common.DefaultSessionTimeout/time.Millisecond), WrapString("Connect timeout in milliseconds, the session timeout is derived from it"))

	key = "auth"
	cmd.PersistentFlags().String(key, "", WrapString("Digest credentials in the form user:password"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))

	key = "metrics-addr"
	cmd.PersistentFlags().String(key, "", WrapString("Serve prometheus metrics on this address (e.g. :9090), disabled if empty"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dlock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Servers:        common.ParseServers(viper.GetString("servers")),
		SessionTimeout: time.Duration(viper.GetInt("session-timeout")) * time.Millisecond,
		Auth:           viper.GetString("auth"),
		LogLevel:       viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Session setup
// --------------------------------------------------------------------------

// Connect binds the flags of cmd, reads the client configuration and opens a
// session. A nil listener installs the logging BaseListener.
func Connect(cmd *cobra.Command, listener dlock.IListener) (*dlock.Coordinator, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}

	conf := GetClientConfig()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return nil, err
	}
	Logger.Debugf("%s", conf)

	if addr := viper.GetString("metrics-addr"); addr != "" {
		serveMetrics(addr)
	}

	if listener == nil {
		listener = dlock.BaseListener{}
	}

	var opts []dlock.InitOption
	if conf.Auth != "" {
		opts = append(opts, dlock.WithAuth(conf.Auth))
	}

	c := dlock.New(zkclient.NewDialer())
	if err := c.Init(strings.Join(conf.Servers, ","), listener, conf.SessionTimeout, opts...); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", strings.Join(conf.Servers, ","), err)
	}
	return c, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		Logger.Infof("serving metrics on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics server stopped: %v", err)
		}
	}()
}

// WaitForSignal blocks until SIGINT or SIGTERM is received.
func WaitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh
}

// ParseVersion parses a node version flag value, -1 disables the version check.
func ParseVersion(v int) (int32, error) {
	if v < -1 {
		return 0, fmt.Errorf("version must be -1 or greater, got %d", v)
	}
	return int32(v), nil
}

// StatusLine renders an error as "status=<name> code=<n>" for scripting.
func StatusLine(err error) string {
	s := coord.StatusOf(err)
	return fmt.Sprintf("status=%q code=%d", s.String(), int32(s))
}
