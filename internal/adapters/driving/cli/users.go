package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var (
	userAccessToken  string
	userRefreshToken string
	userExpiresIn    time.Duration
	userExpiry       string
	userFields       []string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage connected users",
}

var usersSetCmd = &cobra.Command{
	Use:   "set <user-id>",
	Short: "Store tokens for a user",
	Long: `Stores OAuth tokens obtained elsewhere for a user, connecting the user if
needed. Either an access token or a refresh token is required. Extra
profile fields can be attached with --field key=value.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersSet,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected users",
	RunE:  runUsersList,
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a user and their sync state",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove,
}

func init() {
	flags := usersSetCmd.Flags()
	flags.StringVar(&userAccessToken, "token", "", "access token")
	flags.StringVar(&userRefreshToken, "refresh-token", "", "refresh token")
	flags.DurationVar(&userExpiresIn, "expires-in", 0, "access token lifetime from now (e.g. 1h)")
	flags.StringVar(&userExpiry, "expiry", "", "access token expiry (RFC 3339)")
	flags.StringArrayVar(&userFields, "field", nil, "extra profile field as key=value (repeatable)")

	usersCmd.AddCommand(usersSetCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersRemoveCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersSet(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	token := domain.Token{AccessToken: userAccessToken, RefreshToken: userRefreshToken}
	switch {
	case userExpiry != "":
		t, err := time.Parse(time.RFC3339, userExpiry)
		if err != nil {
			return fmt.Errorf("invalid --expiry: %w", err)
		}
		token.Expiry = t
	case userExpiresIn > 0:
		token.Expiry = time.Now().Add(userExpiresIn)
	}

	extra, err := parseFields(userFields)
	if err != nil {
		return err
	}

	if err := accountService.Connect(cmd.Context(), args[0], token, extra); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	cmd.Printf("User %s saved.\n", args[0])
	return nil
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	ids, err := accountService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(ids) == 0 {
		cmd.Println(mutedStyle.Render("No users connected."))
		return nil
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		config, err := accountService.Get(cmd.Context(), id)
		if err != nil {
			rows = append(rows, []string{id, errorStyle.Render(err.Error()), "", ""})
			continue
		}
		rows = append(rows, []string{
			id,
			yesNo(config.AccessToken() != ""),
			yesNo(config.RefreshToken() != ""),
			formatTime(config.Expiry()),
		})
	}

	cmd.Println(renderTable([]string{"User", "Access token", "Refresh token", "Expires"}, rows))
	return nil
}

func runUsersRemove(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	if err := accountService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	cmd.Printf("User %s removed.\n", args[0])
	return nil
}

func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
