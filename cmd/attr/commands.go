package attr

import (
	"fmt"

	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [node] [name]",
		Short: "Prints the value and version of an attribute",
		Long:  `Prints the value and version of an attribute. The name "lock" reports 1 if the node is locked and 0 otherwise.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, version, err := coordinator.GetAttr(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("value=%q, version=%d\n", value, version)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [node] [name] [value]",
		Short: "Creates or updates an attribute",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _ := cmd.Flags().GetInt("version")
			version, err := util.ParseVersion(v)
			if err != nil {
				return err
			}
			m, _ := cmd.Flags().GetString("mask")
			mask, err := dlock.ParseEventMask(m)
			if err != nil {
				return err
			}
			if err := coordinator.SetAttr(args[0], args[1], []byte(args[2]), version, mask); err != nil {
				return fmt.Errorf("failed to set attribute: %w (%s)", err, util.StatusLine(err))
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [node]",
		Short: "Lists all attributes of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := coordinator.ListAttr(args[0])
			if err != nil {
				return err
			}
			for _, a := range attrs {
				fmt.Printf("%s=%q\n", a.Name, a.Value)
			}
			return nil
		},
	}
)
