package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

var (
	coordinator *dlock.Coordinator

	acquireWait    bool
	acquireTimeout time.Duration
	acquireHold    bool

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
		PersistentPostRun: closeLockClient,
		SilenceUsage:      true,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [node]",
		Short: "Acquire the lock on a node",
		Long: `Acquire the lock on a node. The lock belongs to the session of this
process, so it is released when the command exits. Use --hold to keep the
lock until the process receives SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: runAcquire,
	}

	// checkCmd represents the check command
	checkCmd = &cobra.Command{
		Use:   "check [node]",
		Short: "Report whether a node is locked",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(checkCmd)

	// Add session flags to the lock command
	util.SetupClientFlags(LockCommands)

	// Add flags specific to acquire
	acquireCmd.Flags().BoolVar(&acquireWait, "wait", false, util.WrapString("Block until the lock is acquired instead of failing when it is busy"))
	acquireCmd.Flags().DurationVar(&acquireTimeout, "timeout", 0, util.WrapString("Give up waiting after this duration (0 waits forever, only with --wait)"))
	acquireCmd.Flags().BoolVar(&acquireHold, "hold", false, util.WrapString("Hold the lock until SIGINT or SIGTERM, then release it"))
}

// setupLockClient opens the session used by the lock commands
func setupLockClient(cmd *cobra.Command, _ []string) (err error) {
	coordinator, err = util.Connect(cmd, nil)
	return err
}

func closeLockClient(*cobra.Command, []string) {
	if coordinator != nil {
		coordinator.Close()
	}
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	node := args[0]

	ctx := context.Background()
	if acquireWait && acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	err := coordinator.Lock(ctx, node, acquireWait)
	switch {
	case errors.Is(err, coord.ErrLockBusy):
		fmt.Println("acquired=false")
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Printf("acquired=false, waited=%s\n", time.Since(start).Round(time.Millisecond))
		return nil
	case err != nil:
		return fmt.Errorf("failed to acquire lock: %w (%s)", err, util.StatusLine(err))
	}

	fmt.Printf("acquired=true, session=%s, waited=%s\n", coordinator.SessionID(), time.Since(start).Round(time.Millisecond))

	if !acquireHold {
		return nil
	}

	util.WaitForSignal()
	if err := coordinator.UnLock(node); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	fmt.Println("released=true")
	return nil
}

// runCheck handles the check lock command
func runCheck(_ *cobra.Command, args []string) error {
	locked, err := coordinator.IsLocked(args[0])
	if err != nil {
		return fmt.Errorf("failed to check lock: %w", err)
	}
	fmt.Printf("locked=%v\n", locked)
	return nil
}
