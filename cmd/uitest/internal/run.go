package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the app, then provision a device for it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyBuildFlags()
		wd, err := workDir()
		if err != nil {
			return err
		}
		out, err := newRunner(cmd).Run(cmd.Context(), wd)
		if err != nil {
			return err
		}
		data, err := out.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	runCmd.Flags().AddFlagSet(buildCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
