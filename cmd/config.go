package cmd

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/conneroisu/pressify/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pressify configuration",
	Long: `Manage pressify configuration files and settings.

Examples:
  pressify config show                 # Show the resolved configuration
  pressify config show --format json   # Show it as JSON
  pressify config validate             # Validate the resolved configuration
  pressify config init                 # Write the defaults to .pressify.yml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Display the configuration after loading the config file, the project's
.env, PRESSIFY_* environment variables and command-line flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var (
	configFormat string
	configStrict bool
	configOutput string
	configForce  bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd, configInitCmd)

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", ".pressify.yml", "Output configuration file")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := validateChoice("format", configFormat, "yaml", "json"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return writeConfig(cmd, cfg, configFormat)
}

func writeConfig(cmd *cobra.Command, cfg *config.Config, format string) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return err
	}
	return encoder.Close()
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.BindEnv(v)

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}
	if len(cfg.Environment.Templates) == 0 {
		cfg.Environment.Templates = config.DefaultTemplates()
	}

	result := config.Validate(&cfg)
	fmt.Fprint(cmd.OutOrStdout(), result.String())

	if result.HasErrors() {
		return stderrors.New("configuration is invalid")
	}
	if configStrict && len(result.Warnings) > 0 {
		return stderrors.New("configuration has warnings (--strict)")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configOutput); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configOutput)
	}

	v := viper.New()
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}

	f, err := os.Create(configOutput)
	if err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", configOutput)
	return nil
}
