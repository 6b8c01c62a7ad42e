package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	buildProject       string
	buildConfiguration string
	buildProperties    map[string]string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the app project into the bin directory",
	Long: `Build compiles the project with the toolchain matching its format: dotnet for
SDK-style projects, msbuild for legacy projects and gradle for Android
Gradle builds. Without --project the first project file found below the
working directory is built.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildProject, "project", "p", "", "project file to build")
	buildCmd.Flags().StringVar(&buildConfiguration, "configuration", "", "build configuration (default Release)")
	buildCmd.Flags().StringToStringVar(&buildProperties, "property", nil, "extra build property key=value")
	rootCmd.AddCommand(buildCmd)
}

func applyBuildFlags() {
	if buildProject != "" {
		cfg.Build.Project = buildProject
	}
	if buildConfiguration != "" {
		cfg.Build.Configuration = buildConfiguration
	}
	if len(buildProperties) > 0 {
		if cfg.Build.Properties == nil {
			cfg.Build.Properties = map[string]string{}
		}
		for k, v := range buildProperties {
			cfg.Build.Properties[k] = v
		}
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	applyBuildFlags()
	wd, err := workDir()
	if err != nil {
		return err
	}
	res, err := newRunner(cmd).Build(cmd.Context(), wd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("built"), res.Strategy, res.Configuration, "->", res.OutputDir)
	return nil
}
