package internal

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set with -ldflags "-X github.com/goplus/uitest/cmd/uitest/internal.Version=...".
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the uitest version",
	Args:  cobra.NoArgs,
	// No configuration is needed to print the version.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "uitest", version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
