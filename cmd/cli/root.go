// Package cli provides the command-line interface for the officewatch
// presence bot: the API server, one-shot presence checks, and registry
// maintenance commands.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/officewatch/officewatch/internal/config"
	"github.com/officewatch/officewatch/internal/logging"
)

var (
	cfgFile string
	verbose bool

	// cfg is resolved in initConfig and shared by all commands.
	cfg *config.Config
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "officewatch",
	Short: "Office presence bot",
	Long: `Officewatch periodically scans the local office network for known
device MAC addresses, matches them against registered users, and reports
who is physically present via an HTTP endpoint and a Slack bot.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	bindFlags(rootCmd.PersistentFlags())
}

// bindFlags exposes every persistent flag through viper so values can also
// come from OFFICEWATCH_* environment variables.
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(f.Name, f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", f.Name, err)
		}
	})
}

// initConfig loads .env secrets and the config file, overlays OFFICEWATCH_*
// environment variables, then sets up logging.
func initConfig() {
	// Secrets (Slack tokens, registry password) come from the environment;
	// .env keeps local development painless.
	_ = godotenv.Load()

	initViperEnv()

	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	applyViperOverrides(loaded)
	if err := loaded.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	initLogging()
}

// initViperEnv maps OFFICEWATCH_* environment variables onto dotted config
// keys, e.g. OFFICEWATCH_API_PORT -> api.port.
func initViperEnv() {
	viper.SetEnvPrefix("OFFICEWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// applyViperOverrides overlays values resolved through viper (bound flags
// and OFFICEWATCH_* environment variables) onto the loaded configuration.
// File values lose to the environment; secrets are handled separately in
// config.Load.
func applyViperOverrides(c *config.Config) {
	if viper.IsSet("api.listen_addr") {
		c.API.ListenAddr = viper.GetString("api.listen_addr")
	}
	if viper.IsSet("api.port") {
		c.API.Port = viper.GetInt("api.port")
	}
	if viper.IsSet("registry.host") {
		c.Registry.Host = viper.GetString("registry.host")
	}
	if viper.IsSet("registry.port") {
		c.Registry.Port = viper.GetInt("registry.port")
	}
	if viper.IsSet("registry.database") {
		c.Registry.Database = viper.GetString("registry.database")
	}
	if viper.IsSet("registry.username") {
		c.Registry.Username = viper.GetString("registry.username")
	}
	if viper.IsSet("scan.scanner_path") {
		c.Scan.ScannerPath = viper.GetString("scan.scanner_path")
	}
	if viper.IsSet("scan.use_sudo") {
		c.Scan.UseSudo = viper.GetBool("scan.use_sudo")
	}
	if viper.IsSet("scan.interface") {
		c.Scan.Interface = viper.GetString("scan.interface")
	}
	if viper.IsSet("slack.trigger_keyword") {
		c.Slack.TriggerKeyword = viper.GetString("slack.trigger_keyword")
	}
	if viper.IsSet("slack.workspace_id") {
		c.Slack.WorkspaceID = viper.GetString("slack.workspace_id")
	}
	if viper.IsSet("watch.enabled") {
		c.Watch.Enabled = viper.GetBool("watch.enabled")
	}
	if viper.IsSet("watch.schedule") {
		c.Watch.Schedule = viper.GetString("watch.schedule")
	}
	if viper.IsSet("logging.level") {
		c.Logging.Level = viper.GetString("logging.level")
	}
	if viper.IsSet("logging.format") {
		c.Logging.Format = viper.GetString("logging.format")
	}
}

// initLogging sets up the default structured logger from configuration.
func initLogging() {
	logCfg := logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Format: logging.LogFormat(cfg.Logging.Format),
		Output: cfg.Logging.Output,
	}
	if viper.GetBool("verbose") {
		logCfg.Level = logging.LevelDebug
	}

	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
		return
	}
	logging.SetDefault(logger)
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}
