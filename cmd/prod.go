package cmd

import (
	"github.com/conneroisu/pressify/internal/workflow"
	"github.com/spf13/cobra"
)

var prodCmd = &cobra.Command{
	Use:   workflow.Prod,
	Short: "Build the theme for production and package it",
	Long: `Remove dist/, build the theme into dist/themes/<theme> with minified
styles, scripts and SVG images, copy plugins into dist/plugins and package
the theme as dist/<theme>.zip.`,
	Args: cobra.NoArgs,
	RunE: runGraph((*workflow.Workflow).Prod),
}

var backupCmd = &cobra.Command{
	Use:   workflow.Backup,
	Short: "Zip build/ into backups/<dd.mm.yyyy>.zip",
	Args:  cobra.NoArgs,
	RunE:  runGraph((*workflow.Workflow).Backup),
}

func init() {
	rootCmd.AddCommand(prodCmd, backupCmd)
}
