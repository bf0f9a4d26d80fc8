package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/presets"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ConfigFileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := config.GenerateDefaultConfigFile(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if configLoader != nil {
			if used := configLoader.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(out, "# config file: %s\n", used)
			}
		}
		data, err := config.Marshal(*GetConfig())
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	},
}

var configPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List threshold presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := presets.Load(GetConfig().PresetsFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range reg.All() {
			_, _ = fmt.Fprintf(out, "%-12s block=%-3d offset=%-3d %s\n", p.Name, p.BlockSize, p.Offset, p.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPresetsCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configPresetsCmd.Flags().String("presets-file", "", "YAML file with additional presets")
}
