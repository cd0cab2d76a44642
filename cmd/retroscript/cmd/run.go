package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script.rsc>",
	Short: "Execute a script file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		return report(eng.RunFile(args[0], nil))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
