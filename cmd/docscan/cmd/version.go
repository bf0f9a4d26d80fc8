package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docscan/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if short, _ := cmd.Flags().GetBool("short"); short {
			v, _, _ := version.Info()
			_, err := fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "print only the version number")

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
}
