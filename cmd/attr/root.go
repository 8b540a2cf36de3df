package attr

import (
	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

var (
	coordinator *dlock.Coordinator

	// AttrCommands represents the attribute command group
	AttrCommands = &cobra.Command{
		Use:               "attr",
		Short:             "Read and write node attributes",
		PersistentPreRunE: setupAttrClient,
		PersistentPostRun: closeAttrClient,
		SilenceUsage:      true,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add session flags to the attr command
	util.SetupClientFlags(AttrCommands)

	// Add subcommands
	AttrCommands.AddCommand(getCmd)
	AttrCommands.AddCommand(setCmd)
	AttrCommands.AddCommand(listCmd)

	setCmd.Flags().Int("version", -1, util.WrapString("Expected attribute version, -1 disables the check"))
	setCmd.Flags().String("mask", "none", util.WrapString("Watches to install on the attribute (see dlock watch --help)"))
}

// setupAttrClient opens the session used by the attr commands
func setupAttrClient(cmd *cobra.Command, _ []string) (err error) {
	coordinator, err = util.Connect(cmd, nil)
	return err
}

func closeAttrClient(*cobra.Command, []string) {
	if coordinator != nil {
		coordinator.Close()
	}
}
