package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var runOnce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll all connected users",
	Long: `Runs the polling scheduler: after a short initial delay every connected
user is synced, change records are written to the sink, and the next cycle
starts a fixed interval after the previous one finished.

Use --once to run a single cycle and exit.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run one cycle and exit")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	if runOnce {
		result := scheduler.RunCycle(cmd.Context())
		printCycle(cmd, result)
		if !result.Success() {
			return fmt.Errorf("cycle %d failed: %s", result.Cycle, result.Error)
		}
		return nil
	}

	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && !settings.Polling.Enabled {
			cmd.Println(warningStyle.Render("Polling is disabled."))
			cmd.Println("Enable it with 'calsync settings polling --enable'.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Polling started. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if errors.Is(err, context.Canceled) {
		cmd.Println("Polling stopped.")
		return nil
	}
	return err
}

func printCycle(cmd *cobra.Command, result domain.CycleResult) {
	status := "ok"
	if !result.Success() {
		status = "failed"
	}
	status = outcomeStyle(result.Success()).Render(status)
	cmd.Printf("Cycle %d %s: %d users, %d records, %d failures (%s)\n",
		result.Cycle, status, result.Users, result.Records, result.Failures,
		result.Duration().Round(time.Millisecond))
}
