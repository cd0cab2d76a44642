package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morroware/retroscript/pkg/value"
)

var evalCmd = &cobra.Command{
	Use:   "eval <statements>",
	Short: "Execute script text given on the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		res := eng.Run(strings.Join(args, " "), nil)
		if res.Success && !res.Value.IsNull() {
			fmt.Println(value.ToString(res.Value))
		}
		return report(res)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
