package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tickerfactor/factorctl/internal/factor"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse a factor expression and print its canonical form",
	Long: `Parse a factor expression into its operator tree and print it back
out in canonical S-expression form.

This is useful for validating an expression before adding it to the
registry, and for checking what a parser alias (e.g. TSSum, TSMean)
expands to internally.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	binName := BinName()
	parseCmd.Example = `  # Parse a simple moving average
  ` + binName + ` parse "(SMA 10 :close)"

  # Parse a composite expression
  ` + binName + ` parse "(/ :close (Delay 5 :close))"`
}

func runParse(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	f, err := factor.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	log.Info("canonical: %s", f.String())
	log.Info("nodes:     %d", f.Len())
	log.Info("depth:     %d", f.Depth())
	log.Info("ready at:  %d", f.ReadyOffset())
	log.Info("columns:   %v", f.Columns())

	return nil
}
