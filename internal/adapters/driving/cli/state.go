package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var stateReset bool

var stateCmd = &cobra.Command{
	Use:   "state <user-id>",
	Short: "Show a user's stored sync cursors",
	Long: `Shows the per-calendar sync cursors stored for a user and when the state
expires. --reset discards them so the next sync is a full sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runState,
}

func init() {
	stateCmd.Flags().BoolVar(&stateReset, "reset", false, "discard stored cursors")
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}
	userID := args[0]

	if stateReset {
		if err := accountService.ResetState(cmd.Context(), userID); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		cmd.Printf("Sync state for %s discarded.\n", userID)
		return nil
	}

	state, err := accountService.State(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if state == nil {
		cmd.Println(mutedStyle.Render("No sync state stored. The next sync will be a full sync."))
		return nil
	}

	ids := make([]string, 0, len(state.CalendarCursors))
	for id := range state.CalendarCursors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{truncate(id, 48), truncate(state.CalendarCursors[id], 32)})
	}

	cmd.Println(titleStyle.Render("Sync state: " + userID))
	if len(rows) > 0 {
		cmd.Println(renderTable([]string{"Calendar", "Cursor"}, rows))
	}
	cmd.Printf("Last sync:  %s\n", formatTime(state.LastSync))
	cmd.Printf("Expires:    %s\n", formatTime(state.ExpiresAt()))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
