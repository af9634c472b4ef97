package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/pipeline"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Per-model token usage with estimated list-price cost",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, _ []string) error {
	sess, err := openEngine()
	if err != nil {
		return err
	}
	defer sess.close()

	stats := sess.engine.StatsCache()
	costs, totals := pipeline.EstimateModelCosts(&stats, sess.cfg)
	if flagJSON {
		return printJSON(struct {
			Models []pipeline.ModelCost `json:"models"`
			Totals pipeline.CostTotals  `json:"totals"`
		}{costs, totals})
	}
	if len(costs) == 0 {
		printEmpty(sess.engine.ClaudeDir())
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("MODEL USAGE  All time"))
	fmt.Println()

	rows := make([][]string, 0, len(costs)+2)
	for _, c := range costs {
		cost := cli.FormatCost(c.Cost)
		if !c.Priced {
			cost = "n/a"
		}
		rows = append(rows, []string{
			cli.ShortModel(c.Model),
			cli.FormatTokens(c.Usage.InputTokens),
			cli.FormatTokens(c.Usage.OutputTokens),
			cli.FormatTokens(c.Usage.CacheCreationInputTokens),
			cli.FormatTokens(c.Usage.CacheReadInputTokens),
			cli.FormatNumber(c.Usage.WebSearchRequests),
			cost,
		})
	}
	rows = append(rows, cli.Separator, []string{"total", "", "", "", "", "", cli.FormatCost(totals.Cost)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Input", "Output", "Cache W", "Cache R", "Web", "Est. cost"},
		Rows:    rows,
	}))

	fmt.Println()
	fmt.Printf("  Cache reads saved an estimated %s versus full input pricing.\n", cli.FormatCost(totals.CacheSavings))
	if totals.Unpriced > 0 {
		fmt.Println(cli.RenderMuted(fmt.Sprintf(
			"  %d model(s) have no list price; add [pricing.overrides.<model>] to the config.", totals.Unpriced)))
	}
	fmt.Println(cli.RenderMuted("  Estimates use list prices and are not billing data."))
	fmt.Println()
	return nil
}
