package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a device for the app in the bin directory",
	Long: `Provision detects the platform of the app in the bin directory, brings an
emulator, simulator or connected device into a ready state and rewrites
uitest.json with the device it picked.`,
	Args: cobra.NoArgs,
	RunE: runProvision,
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	wd, err := workDir()
	if err != nil {
		return err
	}
	out, err := newRunner(cmd).Provision(cmd.Context(), wd)
	if err != nil {
		return err
	}
	data, err := out.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
