package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dlock/cmd/attr"
	"github.com/ValentinKolb/dlock/cmd/lock"
	"github.com/ValentinKolb/dlock/cmd/node"
	"github.com/ValentinKolb/dlock/cmd/watch"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dlock",
		Short: "distributed locks and metadata on ZooKeeper",
		Long: fmt.Sprintf(`dlock (v%s)

A distributed lock and metadata coordination client written in Go. Locks,
attributes and watches are kept in a ZooKeeper tree, so every process
talking to the same ensemble agrees on who holds which lock.

Connection settings are read from flags, from DLOCK_* environment
variables and from .env / .env.local files.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dlock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dlock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(attr.AttrCommands)
	RootCmd.AddCommand(node.NodeCommands)
	RootCmd.AddCommand(watch.WatchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
