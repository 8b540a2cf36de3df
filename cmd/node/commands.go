package node

import (
	"fmt"

	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

var (
	mkdirCmd = &cobra.Command{
		Use:   "mkdir [node]",
		Short: "Creates a persistent node without data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := coordinator.MkDir(args[0], dlock.EventMaskNone); err != nil {
				return err
			}
			fmt.Println("created successfully")
			return nil
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [node] [value]",
		Short: "Creates a node with an optional value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ephemeral, _ := cmd.Flags().GetBool("ephemeral")
			var value []byte
			if len(args) == 2 {
				value = []byte(args[1])
			}
			if err := coordinator.CreateNodeWithVal(args[0], dlock.EventMaskNone, value, ephemeral); err != nil {
				return fmt.Errorf("failed to create node: %w (%s)", err, util.StatusLine(err))
			}
			fmt.Println("created successfully")
			if ephemeral {
				// the node lives as long as this session
				util.WaitForSignal()
			}
			return nil
		},
	}
	lsCmd = &cobra.Command{
		Use:   "ls [node]",
		Short: "Lists the children of a node, attributes excluded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			children, err := coordinator.ListNode(args[0])
			if err != nil {
				return err
			}
			for _, child := range children {
				fmt.Println(child)
			}
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [node]",
		Short: "Deletes a node and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := coordinator.Unlink(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [node]",
		Short: "Checks if a node exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := coordinator.Exists(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("exists=%v\n", ok)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [node]",
		Short: "Prints the data and version of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, version, err := coordinator.GetData(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("value=%q, version=%d\n", value, version)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [node] [value]",
		Short: "Replaces the data of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _ := cmd.Flags().GetInt("version")
			version, err := util.ParseVersion(v)
			if err != nil {
				return err
			}
			if err := coordinator.SetData(args[0], []byte(args[1]), version); err != nil {
				return fmt.Errorf("failed to set data: %w (%s)", err, util.StatusLine(err))
			}
			fmt.Println("set successfully")
			return nil
		},
	}
)
