package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmaudit/claimscope/pkg/pipeline"
)

// reportCmd rebuilds the report sheets from stored results without querying
// any platform.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the report sheets of a stored run",
	RunE: func(cmd *cobra.Command, args []string) error {
		stmtPath, _ := cmd.Flags().GetString("statement")
		artist, _ := cmd.Flags().GetString("artist")
		runKey, _ := cmd.Flags().GetString("run")
		if runKey == "" {
			if stmtPath == "" {
				return fmt.Errorf("either --run or --statement is required")
			}
			runKey = pipeline.RunKey(stmtPath, artist)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, unlock, err := openResults(cfg)
		if err != nil {
			return err
		}
		defer unlock()
		defer db.Close()

		if err := db.RequireRun(cmd.Context(), runKey); err != nil {
			return err
		}

		return writeReports(cmd, db, cfg, runKey)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("statement", "", "Client statement CSV file the run was started with")
	reportCmd.Flags().String("artist", "", "Artist the run was narrowed to")
	reportCmd.Flags().String("run", "", "Run key as shown by 'claimscope db stats'")
}
