package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/pgraph/internal/config"
	"github.com/l3aro/pgraph/pkg/export"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pgraph configuration interactively",
	Long: `Guides you through setting up pgraph step by step: output location, table
format, caching and the optional SQLite export. Writes a global or project
config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

// initAnswers holds the form values as strings so huh inputs can bind them.
type initAnswers struct {
	outputDir    string
	delimiter    string
	header       bool
	cacheEnabled bool
	workers      string
	sqlitePath   string
	extensions   string
	location     string
}

func defaultAnswers(cfg *config.Config) *initAnswers {
	return &initAnswers{
		outputDir:    cfg.OutputDir,
		delimiter:    "comma",
		header:       cfg.Header,
		cacheEnabled: cfg.CacheEnabled,
		workers:      strconv.Itoa(cfg.Workers),
		sqlitePath:   cfg.SQLitePath,
		extensions:   strings.Join(cfg.Extensions, ","),
		location:     "project",
	}
}

// apply copies the answers onto cfg and validates the result.
func (a *initAnswers) apply(cfg *config.Config) error {
	cfg.OutputDir = strings.TrimSpace(a.outputDir)
	cfg.Delimiter = a.delimiter
	cfg.Header = a.header
	cfg.CacheEnabled = a.cacheEnabled
	cfg.SQLitePath = strings.TrimSpace(a.sqlitePath)

	workers, err := strconv.Atoi(strings.TrimSpace(a.workers))
	if err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	cfg.Workers = workers

	var exts []string
	for _, e := range strings.Split(a.extensions, ",") {
		if e = strings.TrimSpace(e); e != "" {
			exts = append(exts, e)
		}
	}
	cfg.Extensions = exts
	return cfg.Validate()
}

func (a *initAnswers) configPath() (string, error) {
	if a.location == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, ".pgraph", "config.yaml"), nil
	}
	return config.ProjectConfigFilePath(), nil
}

func runInit() error {
	cfg := config.DefaultConfig()
	answers := defaultAnswers(cfg)

	// === SECTION 1: Output ===
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Description("Node and edge tables are written here").
				Placeholder(cfg.OutputDir).
				Value(&answers.outputDir),
			huh.NewSelect[string]().
				Title("Table delimiter").
				Options(
					huh.NewOption("Comma (,)", "comma"),
					huh.NewOption("Tab", "tab"),
					huh.NewOption("Semicolon (;)", "semicolon"),
					huh.NewOption("Pipe (|)", "pipe"),
				).
				Value(&answers.delimiter),
			huh.NewConfirm().
				Title("Write a header row?").
				Value(&answers.header),
		),
		// === SECTION 2: Build ===
		huh.NewGroup(
			huh.NewInput().
				Title("Source extensions").
				Description("Comma separated; files with other extensions are skipped").
				Value(&answers.extensions),
			huh.NewInput().
				Title("Parallel workers (0 = one per CPU)").
				Value(&answers.workers).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return fmt.Errorf("enter a non-negative number")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Cache tables of unchanged files?").
				Value(&answers.cacheEnabled),
			huh.NewInput().
				Title("SQLite database (optional, press Enter to skip)").
				Placeholder("optional").
				Value(&answers.sqlitePath),
		),
		// === SECTION 3: Config Location ===
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.pgraph/config.yaml)", "project"),
					huh.NewOption("Global (~/.pgraph/config.yaml)", "global"),
				).
				Value(&answers.location),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if err := answers.apply(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	configPath, err := answers.configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	printPreview(cfg, configPath)

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// Reload to confirm the file round-trips.
	if _, err := config.LoadFromFile(configPath); err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}
	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

func printPreview(cfg *config.Config, configPath string) {
	delim, _ := export.ParseDelimiter(cfg.Delimiter)

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Output: %s (%s, %s)\n", cfg.OutputDir, cfg.NodesFile, cfg.EdgesFile)
	fmt.Printf("Delimiter: %q  Header: %v\n", string(delim), cfg.Header)
	fmt.Printf("Extensions: %s\n", strings.Join(cfg.Extensions, " "))
	fmt.Printf("Workers: %d  Cache: %v\n", cfg.Workers, cfg.CacheEnabled)
	if cfg.SQLitePath != "" {
		fmt.Printf("SQLite: %s\n", cfg.SQLitePath)
	}
	fmt.Println("================================")
}

func init() {
	RootCmd.AddCommand(initCmd)
}
