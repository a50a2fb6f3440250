package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/officewatch/officewatch/internal/api"
	"github.com/officewatch/officewatch/internal/chat"
	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/metrics"
	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/presence"
	"github.com/officewatch/officewatch/internal/registry"
	"github.com/officewatch/officewatch/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the presence API server",
	Long: `Start the HTTP API server with the presence check endpoint, user
registration, and the Slack events webhook. With watch mode enabled, a
background scheduler additionally sweeps the network on a cron schedule.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Default()

	store, err := registry.Connect(ctx, &cfg.Registry)
	if err != nil {
		return fmt.Errorf("connect registry: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate registry: %w", err)
	}

	prom := metrics.NewPrometheusMetrics()
	store.SetMetrics(prom)
	service := buildPresenceService(store, prom, logger)

	deps := api.Deps{
		Checker: service,
		Store:   store,
		Pinger:  store,
		Prom:    prom,
	}

	var dispatcher *chat.Dispatcher
	if cfg.Slack.BotToken != "" {
		sender := chat.NewSlackSender(cfg.Slack.BotToken)
		dispatcher = chat.NewDispatcher(sender, service, cfg.Slack.TriggerKeyword, logger)
		deps.Dispatcher = dispatcher
	} else {
		logger.Warn("SLACK_BOT_TOKEN not set, Slack integration disabled")
	}

	if cfg.Watch.Enabled {
		scheduler := watch.NewScheduler(service, cfg.Watch.Schedule, logger)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start watch scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	server := api.New(cfg, deps)
	err = server.Start(ctx)

	// Let detached chat pipelines post their follow-ups before exit
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return err
}

// buildPresenceService wires the scan pipeline from configuration.
func buildPresenceService(store *registry.Store, prom *metrics.PrometheusMetrics,
	logger *logging.Logger) *presence.Service {
	runner := netscan.NewArpScanRunner(cfg.Scan.ScannerPath, cfg.Scan.UseSudo, cfg.Scan.ScanTimeout)
	detector := netscan.NewDetector(cfg.Scan.Interface, logger)
	scanLog := netscan.NewScanLog(cfg.Scan.LogDir)
	aggregator := netscan.NewAggregator(runner, detector, scanLog, cfg.Scan.Cooldown, logger)

	return presence.NewService(aggregator, store, cfg.Slack.WorkspaceID, logger, prom)
}
