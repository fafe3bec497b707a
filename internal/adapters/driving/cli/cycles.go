package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var cyclesLimit int

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Show recent polling cycles",
	RunE:  runCycles,
}

func init() {
	cyclesCmd.Flags().IntVarP(&cyclesLimit, "limit", "n", 20, "number of cycles to show")
	rootCmd.AddCommand(cyclesCmd)
}

func runCycles(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	history, err := scheduler.History(cmd.Context(), cyclesLimit)
	if err != nil {
		return fmt.Errorf("failed to load cycle history: %w", err)
	}
	if len(history) == 0 {
		cmd.Println(mutedStyle.Render("No cycles recorded yet."))
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, r := range history {
		status := "ok"
		if !r.Success() {
			status = truncate(r.Error, 40)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.Cycle, 10),
			formatTime(r.StartedAt),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.Users),
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Failures),
			status,
		})
	}

	cmd.Println(renderTable([]string{"Cycle", "Started", "Duration", "Users", "Records", "Failures", "Status"}, rows))
	return nil
}
