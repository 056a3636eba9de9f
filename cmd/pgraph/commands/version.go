package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = ""
)

// SetVersion records the build information reported by the version command.
func SetVersion(v, built string) {
	version = v
	buildTime = built
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pgraph version %s\n", version)
		if buildTime != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", buildTime)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	RootCmd.SetVersionTemplate("pgraph version {{.Version}}\n")
	RootCmd.AddCommand(versionCmd)
}
