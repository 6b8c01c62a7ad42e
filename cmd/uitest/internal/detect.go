package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the platform and path of the app in the bin directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := workDir()
		if err != nil {
			return err
		}
		art, err := newRunner(cmd).Detect(wd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", art.Platform, art.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
