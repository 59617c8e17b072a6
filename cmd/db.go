package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/cmaudit/claimscope/internal/utils"
	"github.com/cmaudit/claimscope/pkg/pipeline"
	"github.com/cmaudit/claimscope/pkg/report"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the claimscope results database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbPath, err := utils.GetAbsDBPath(cfg.DBPath())
		if err != nil {
			return err
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the stored runs with their checkpoint and result counts.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No runs in the database to generate stats.")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.RenderStatsTable(stats))
		return nil
	},
}

// resetCmd forgets a run so the next run starts from the first song.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the checkpoint and stored results of a run",
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

		if err := db.ResetRun(cmd.Context(), runKey); err != nil {
			return err
		}
		utils.Log.Infof("Run %s reset", runKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(resetCmd)
	resetCmd.Flags().String("statement", "", "Client statement CSV file the run was started with")
	resetCmd.Flags().String("artist", "", "Artist the run was narrowed to")
	resetCmd.Flags().String("run", "", "Run key as shown by 'claimscope db stats'")
}
