package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/morroware/retroscript/pkg/script"
)

var checkCmd = &cobra.Command{
	Use:   "check <script.rsc>",
	Short: "Parse a script file without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		src, err := script.Load(args[0])
		if err != nil {
			return err
		}
		if err := eng.Check(src); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
