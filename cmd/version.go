package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/conneroisu/pressify/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionFormat   string
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for pressify.

Examples:
  pressify version              # Show short version
  pressify version --detailed   # Show detailed version info
  pressify version --format json # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	if err := validateChoice("format", versionFormat, "text", "json"); err != nil {
		return err
	}

	info := version.GetBuildInfo()
	out := cmd.OutOrStdout()

	if versionFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	if versionDetailed {
		fmt.Fprintln(out, info.Detailed())
		return nil
	}
	fmt.Fprintln(out, info.String())
	return nil
}
