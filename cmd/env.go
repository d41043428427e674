package cmd

import (
	"github.com/conneroisu/pressify/internal/task"
	"github.com/conneroisu/pressify/internal/workflow"
	"github.com/spf13/cobra"
)

var envStartCmd = &cobra.Command{
	Use:   workflow.EnvStart,
	Short: "Provision the environment and start its containers",
	Long: `Create the build directories, generate Dockerfile, config/php.ini and
.env from their templates (existing files are never overwritten) and run
"docker-compose up -d".`,
	Args: cobra.NoArgs,
	RunE: runGraph((*workflow.Workflow).EnvStart),
}

var envBuildCmd = &cobra.Command{
	Use:   workflow.EnvBuild,
	Short: "Provision the environment and build its images without starting",
	Args:  cobra.NoArgs,
	RunE:  runGraph((*workflow.Workflow).EnvBuild),
}

var envRebuildCmd = &cobra.Command{
	Use:   workflow.EnvRebuild,
	Short: "Tear down, remove generated files, provision again and recreate",
	Long: `Stop the containers and delete build/, xdebug/ and every generated file,
then provision from scratch and run "docker-compose up -d --build
--force-recreate". WordPress content in build/ is lost; run
"pressify backup" first if you need it.`,
	Args: cobra.NoArgs,
	RunE: runGraph((*workflow.Workflow).EnvRebuild),
}

var envRestartCmd = &cobra.Command{
	Use:   workflow.EnvRestart,
	Short: "Restart one service of the running environment",
	Example: `  pressify env:restart
  pressify env:restart --service db`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app) error {
		service, _ := cmd.Flags().GetString("service")
		if service == "" {
			service = a.cfg.Environment.Service
		}
		return a.run(cmd.Context(), a.workflow.EnvRestart(service))
	}),
}

var envStopCmd = &cobra.Command{
	Use:   workflow.EnvStop,
	Short: "Stop the environment",
	Args:  cobra.NoArgs,
	RunE:  runGraph((*workflow.Workflow).EnvStop),
}

func init() {
	envRestartCmd.Flags().StringP("service", "s", "", "service to restart (default from environment.service)")

	rootCmd.AddCommand(envStartCmd, envBuildCmd, envRebuildCmd, envRestartCmd, envStopCmd)
}

// runGraph runs the graph graph builds.
func runGraph(graph func(*workflow.Workflow) task.Node) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, a *app) error {
		return a.run(cmd.Context(), graph(a.workflow))
	})
}
