package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/registry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-shot presence check",
	Long: `Run the full scan pipeline once and print who is currently in the
office. The double scan takes a bit over a minute.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := registry.Connect(ctx, &cfg.Registry)
	if err != nil {
		return fmt.Errorf("connect registry: %w", err)
	}
	defer store.Close()

	service := buildPresenceService(store, nil, logging.Default())

	result, err := service.Check(ctx, "cli")
	if err != nil {
		return fmt.Errorf("presence check failed: %w", err)
	}

	fmt.Println(result.Message())
	fmt.Println()

	if len(result.Observations) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("IP", "MAC", "Owner")

		owners := ownerIndex(result.PresentUsers)
		for _, obs := range result.Observations {
			_ = table.Append([]string{obs.IP, obs.MAC, owners[obs.MAC]})
		}
		_ = table.Render()
	}

	return nil
}

// ownerIndex maps observed MACs to the display name of their registered
// owner, for the device table.
func ownerIndex(users []registry.User) map[string]string {
	owners := make(map[string]string)
	for i := range users {
		for _, device := range users[i].Devices {
			owners[strings.ToLower(device.MACAddress)] = users[i].Name
		}
	}
	return owners
}
