package watch

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ValentinKolb/dlock/cmd/util"
	"github.com/ValentinKolb/dlock/lib/dlock"
	"github.com/spf13/cobra"
)

// WatchCmd represents the watch command
var WatchCmd = &cobra.Command{
	Use:   "watch [node]",
	Short: "Print the events of a node until interrupted",
	Long: `Installs the watches selected by --mask on a node and prints every
event as one line. Mask names: attr, child, release, data, acquired,
expired, reconnected, node, all.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runWatch,
	SilenceUsage: true,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupClientFlags(WatchCmd)
	WatchCmd.Flags().String("mask", "all", util.WrapString("Comma separated list of events to watch"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	m, _ := cmd.Flags().GetString("mask")
	mask, err := dlock.ParseEventMask(m)
	if err != nil {
		return err
	}

	coordinator, err := util.Connect(cmd, newPrintListener(os.Stdout))
	if err != nil {
		return err
	}
	defer coordinator.Close()

	if err := coordinator.SetWatcher(args[0], mask); err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}
	fmt.Printf("watching %s (%s), session=%s\n", args[0], mask, coordinator.SessionID())

	util.WaitForSignal()
	return nil
}

// --------------------------------------------------------------------------
// Printing listener
// --------------------------------------------------------------------------

// printListener writes one line per event.
type printListener struct {
	mu  sync.Mutex
	out io.Writer
}

var _ dlock.IListener = (*printListener)(nil)

func newPrintListener(out io.Writer) *printListener {
	return &printListener{out: out}
}

func (p *printListener) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printListener) AttrChange(node, attr string) {
	p.printf("event=attr-change node=%s attr=%s", node, attr)
}

func (p *printListener) NodeDel(node string) {
	p.printf("event=node-deleted node=%s", node)
}

func (p *printListener) DataChange(node string, value []byte) {
	p.printf("event=data-change node=%s value=%q", node, value)
}

func (p *printListener) ChildEvent(node string) {
	p.printf("event=child-event node=%s", node)
}

func (p *printListener) ChildChange(node, child string) {
	p.printf("event=child-added node=%s child=%s", node, child)
}

func (p *printListener) LockAcquired(node string) {
	p.printf("event=lock-acquired node=%s", node)
}

func (p *printListener) LockReleased(node string) {
	p.printf("event=lock-released node=%s", node)
}

func (p *printListener) NodeCreate(node string) {
	p.printf("event=node-created node=%s", node)
}

func (p *printListener) SessionExpired() {
	p.printf("event=session-expired")
}

func (p *printListener) SessionReConnected() {
	p.printf("event=session-reconnected")
}
