package node

import (
	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

var (
	coordinator *dlock.Coordinator

	// NodeCommands represents the node command group
	NodeCommands = &cobra.Command{
		Use:               "node",
		Short:             "Manage coordination nodes",
		PersistentPreRunE: setupNodeClient,
		PersistentPostRun: closeNodeClient,
		SilenceUsage:      true,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add session flags to the node command
	util.SetupClientFlags(NodeCommands)

	// Add subcommands
	NodeCommands.AddCommand(mkdirCmd)
	NodeCommands.AddCommand(createCmd)
	NodeCommands.AddCommand(lsCmd)
	NodeCommands.AddCommand(rmCmd)
	NodeCommands.AddCommand(existsCmd)
	NodeCommands.AddCommand(getCmd)
	NodeCommands.AddCommand(setCmd)

	createCmd.Flags().Bool("ephemeral", false, util.WrapString("Create an ephemeral node and keep the session until SIGINT or SIGTERM"))
	setCmd.Flags().Int("version", -1, util.WrapString("Expected node version, -1 disables the check"))
}

// setupNodeClient opens the session used by the node commands
func setupNodeClient(cmd *cobra.Command, _ []string) (err error) {
	coordinator, err = util.Connect(cmd, nil)
	return err
}

func closeNodeClient(*cobra.Command, []string) {
	if coordinator != nil {
		coordinator.Close()
	}
}
