package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/nbody/engine/core"
	"github.com/spaghettifunk/nbody/engine/report"
)

var collateOut string // CSV file receiving the collated table

// collateCmd aggregates the reports of many runs
var collateCmd = &cobra.Command{
	Use:   "collate [reports or directories...]",
	Short: "Average run reports per GPU, buffering mode and particle count",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, err := report.LoadDatasets(args)
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			return errors.New("no reports found")
		}
		rows := report.Collate(sets)
		core.LogInfo("collated %d reports into %d rows", len(sets), len(rows))

		if err := report.RenderCollated(cmd.OutOrStdout(), rows); err != nil {
			return err
		}
		if collateOut == "" {
			return nil
		}
		f, err := os.Create(collateOut)
		if err != nil {
			return err
		}
		if err := report.WriteCollatedCSV(f, rows); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	collateCmd.Flags().StringVarP(&collateOut, "out", "o", "", "Write the collated table to this CSV file")
}
