package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install the automation server with npm",
	Long: `Setup checks the installed node version and installs the automation server
packages (appium by default, see appium.packages in uitest.yaml) globally
with npm.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := newRunner(cmd).Setup(cmd.Context())
		if version != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "node", version)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("installed"), strings.Join(cfg.Appium.Packages, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
