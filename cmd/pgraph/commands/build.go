package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/pgraph/internal/config"
	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/internal/scanner"
	"github.com/l3aro/pgraph/pkg/cache"
	"github.com/l3aro/pgraph/pkg/export"
	"github.com/l3aro/pgraph/pkg/pipeline"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <path...>",
	Short: "Build and export program graphs",
	Long: `Builds the program graph of every C++ translation unit found in the given files
and directories and writes a node table and an edge table per unit.

A single unit is written to the configured nodes and edges file names inside the
output directory. Several units are written next to each other as
<unit>.nodes.csv and <unit>.edges.csv. Label definitions found in the units are
collated into one JSON file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyBuildFlags(cmd, cfg); err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return runBuild(cmd, cfg, args, jsonOutput)
	},
}

func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("delimiter") {
		cfg.Delimiter, _ = flags.GetString("delimiter")
	}
	if flags.Changed("header") {
		cfg.Header, _ = flags.GetBool("header")
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath, _ = flags.GetString("sqlite")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.CacheEnabled = false
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	return cfg.Validate()
}

func runBuild(cmd *cobra.Command, cfg *config.Config, inputs []string, jsonOutput bool) error {
	logger := newLogger(cfg)

	delim, err := export.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return err
	}

	scanOpts := scanner.DefaultOptions()
	scanOpts.Extensions = cfg.Extensions
	scanOpts.IgnoreFileName = cfg.IgnoreFile

	opts := pipeline.Options{
		OutputDir:  cfg.OutputDir,
		NodesFile:  cfg.NodesFile,
		EdgesFile:  cfg.EdgesFile,
		LabelsFile: cfg.LabelsFile,
		Table:      export.TableOptions{Delimiter: delim, Header: cfg.Header},
		SQLitePath: cfg.SQLitePath,
		Workers:    cfg.EffectiveWorkers(),
		Scanner:    scanOpts,
		Logger:     logger,
	}

	if cfg.CacheEnabled {
		store, err := cache.Open(cfg.CacheDir, cache.Options{})
		if err != nil {
			logger.Warn("cache disabled", "dir", cfg.CacheDir, "error", err)
		} else {
			opts.Cache = store
		}
	}

	var spinner *log.ProgressSpinner
	if !jsonOutput {
		spinner = log.NewProgressSpinner("Building graphs...")
		opts.Progress = func(done, total int) {
			spinner.Message(fmt.Sprintf("Building graphs... %d/%d", done, total))
		}
		spinner.Start()
	}

	summary, err := pipeline.Run(cmd.Context(), inputs, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printSummary(summary)
	return nil
}

func printSummary(s *pipeline.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tNODES\tEDGES\tLABELS\tCACHED\tTABLES")
	for _, u := range s.Units {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%s\n", u.File, u.Nodes, u.Edges, u.Labels, u.Cached,
			filepath.Dir(u.NodesPath))
	}
	w.Flush()

	fmt.Printf("\n%d unit(s) built in %s (%d from cache)\n", len(s.Units), s.Duration.Round(time.Millisecond), s.CacheHits)
	if s.LabelsPath != "" {
		fmt.Printf("Labels: %s\n", s.LabelsPath)
	}
	if s.SQLitePath != "" {
		fmt.Printf("SQLite: %s\n", s.SQLitePath)
	}
}

func init() {
	buildCmd.Flags().StringP("out", "o", "", "Output directory")
	buildCmd.Flags().StringP("delimiter", "d", "", "Table delimiter (comma, tab, semicolon, pipe or one character)")
	buildCmd.Flags().Bool("header", false, "Write a header row")
	buildCmd.Flags().String("sqlite", "", "Also store all units in this SQLite database")
	buildCmd.Flags().Bool("no-cache", false, "Rebuild every unit")
	buildCmd.Flags().IntP("workers", "w", 0, "Units built in parallel (0 = one per CPU)")
	buildCmd.Flags().BoolP("json", "j", false, "Print the build summary as JSON")
	RootCmd.AddCommand(buildCmd)
}
