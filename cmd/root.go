package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/pressify/internal/config"
	"github.com/conneroisu/pressify/internal/console"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pressify",
	Short: "Development workflow for containerized WordPress themes",
	Long: `Pressify provisions a docker compose WordPress environment, builds the
theme's assets and, while you work, rebuilds only what changed and reloads
the browser.

Quick Start:
  pressify env:start              Provision and start the environment
  pressify dev                    Build, serve and watch until Ctrl-C
  pressify prod                   Build and package the theme into dist/
  pressify backup                 Zip build/ into backups/

Run "pressify tasks" to see how every command is composed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. A failure is printed with its hint and
// returned so main can exit non-zero.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext is Execute with a caller-supplied context.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		c := console.New(rootCmd.ErrOrStderr(), console.Options{Quiet: viper.GetBool("quiet")})
		c.Alert()
		c.Error(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .pressify.yml, can also use PRESSIFY_CONFIG_FILE env var)")
	flags.StringP("project", "C", ".", "project root directory")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.BoolP("quiet", "q", false, "disable the audible alert")

	bindFlags(flags, map[string]string{
		"project":    "project.root",
		"log-level":  "logging.level",
		"log-format": "logging.format",
		"quiet":      "quiet",
	})
}

// initConfig initializes the configuration system.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. PRESSIFY_CONFIG_FILE environment variable
//  3. .pressify.yml in the project root
//
// The project's .env is loaded afterwards so SERVER_PORT and PROXY_PORT
// reach the configuration the same way they reach docker compose.
func initConfig() {
	root := viper.GetString("project.root")
	if root == "" {
		root = "."
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PRESSIFY_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(root)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pressify")
	}

	viper.SetEnvPrefix("PRESSIFY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if err := config.LoadDotenv(filepath.Join(root, ".env")); err != nil {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}
}
