// Package commands provides the CLI commands of pgraph.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/l3aro/pgraph/internal/config"
	"github.com/l3aro/pgraph/internal/log"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pgraph",
	Short: "pgraph - program graphs for C++ translation units",
	Long: `pgraph parses C++ translation units and builds a program graph of their
declarations and statements: data, control and record relations, including the
implicit destructor calls of automatic objects. Graphs are exported as two
delimiter-separated tables.

Commands:
  build       Build and export the graphs of files or directories
  cfg         Show the control flow graph of one function
  graph       Summarize the graph of one file
  init        Create a configuration file interactively
  version     Print version information

Use "pgraph [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (default: ~/.pgraph and ./.pgraph)")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")
}

// loadConfig resolves configuration from --config or the default locations
// and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.LoggerConfig{
		Level:      cfg.EffectiveLogLevel(),
		JSONOutput: cfg.JSONLogs,
	})
}
