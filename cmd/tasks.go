package cmd

import (
	"fmt"

	"github.com/conneroisu/pressify/internal/task"
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [name]",
	Short: "List the named task graphs and how they are composed",
	Long: `Print every named task graph as a tree. Series run their members in
order and stop at the first fatal failure; parallel groups run their
members together. Stream tasks report failures and let the rest of the
graph carry on.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		registry, err := a.workflow.Registry()
		if err != nil {
			return err
		}

		names := registry.Names()
		if len(args) == 1 {
			names = args
		}

		out := cmd.OutOrStdout()
		for _, name := range names {
			node, ok := registry.Get(name)
			if !ok {
				return fmt.Errorf("unknown task %q", name)
			}
			fmt.Fprint(out, task.Describe(node))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
