package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/officewatch/officewatch/internal/registry"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage registered users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users and their devices",
	RunE:  runUsersList,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a registered user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := registry.Connect(ctx, &cfg.Registry)
	if err != nil {
		return fmt.Errorf("connect registry: %w", err)
	}
	defer store.Close()

	users, err := store.ListUsers(ctx, cfg.Slack.WorkspaceID)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users registered.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Devices", "Registered")

	for i := range users {
		user := &users[i]

		devices := make([]string, len(user.Devices))
		for j, d := range user.Devices {
			devices[j] = fmt.Sprintf("%s (%s, %s)", d.Name, d.Type, d.MACAddress)
		}

		_ = table.Append([]string{
			user.ID,
			user.Name,
			strings.Join(devices, "; "),
			user.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	return table.Render()
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := registry.Connect(ctx, &cfg.Registry)
	if err != nil {
		return fmt.Errorf("connect registry: %w", err)
	}
	defer store.Close()

	userID := args[0]
	if err := store.DeleteUser(ctx, cfg.Slack.WorkspaceID, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}

	fmt.Printf("User %s deleted.\n", userID)
	return nil
}
