package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cmaudit/claimscope/internal/utils"
	"github.com/cmaudit/claimscope/pkg/catalog"
	"github.com/cmaudit/claimscope/pkg/config"
	"github.com/cmaudit/claimscope/pkg/match"
	"github.com/cmaudit/claimscope/pkg/pipeline"
	"github.com/cmaudit/claimscope/pkg/platforms/registry"
	"github.com/cmaudit/claimscope/pkg/refine"
	"github.com/cmaudit/claimscope/pkg/report"
	"github.com/cmaudit/claimscope/pkg/statement"
	"github.com/cmaudit/claimscope/pkg/storage"
	"github.com/cmaudit/claimscope/pkg/summary"
)

// runCmd implements: claimscope run
//
//	--statement string    Client statement CSV (required)
//	--artist string       Only process songs declaring this artist
//	--restart             Resume from the last committed song
//	--platforms strings   Only query these platforms
//	--dev                 Serve every platform from the built-in fixture
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile a client statement against the platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'claimscope run --help'", args[0])
		}
		stmtPath, _ := cmd.Flags().GetString("statement")
		artist, _ := cmd.Flags().GetString("artist")
		restart, _ := cmd.Flags().GetBool("restart")
		dev, _ := cmd.Flags().GetBool("dev")
		proxy, _ := cmd.Flags().GetString("proxy")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		stmt, err := loadStatement(cfg, stmtPath, artist)
		if err != nil {
			return err
		}
		if len(stmt.Blank) > 0 {
			path, err := report.WriteBlankTracks(cfg.OutputDir(), stmt.Blank)
			if err != nil {
				return err
			}
			utils.Log.Warnf("%d statement rows have no track name, see %s", len(stmt.Blank), path)
		}

		db, unlock, err := openResults(cfg)
		if err != nil {
			return err
		}
		defer unlock()
		defer db.Close()

		bindings, err := registry.Open(cfg, registry.Options{Proxy: proxy, Dev: dev, Log: utils.Log})
		if err != nil {
			return err
		}
		defer registry.Close(bindings)

		refiners, err := refine.RegistryFor(cfg, utils.Log)
		if err != nil {
			return err
		}

		runner := &pipeline.Runner{
			Sources:    bindings,
			Refiners:   refiners,
			Matcher:    match.Matcher{Aliases: cfg.Aliases(), Log: utils.Log},
			Summarizer: newSummarizer(cfg),
			DB:         db,
			Log:        utils.Log,
		}

		runKey := pipeline.RunKey(stmtPath, artist)
		res, err := runner.Run(cmd.Context(), stmt, pipeline.Options{RunKey: runKey, Restart: restart})
		if err != nil {
			return err
		}
		utils.Log.Infof("Run %s processed %d of %d songs", res.RunID, len(res.Reports), res.Total-res.Start)

		return writeReports(cmd, db, cfg, runKey)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("statement", "", "Client statement CSV file")
	runCmd.Flags().String("artist", "", "Only process songs declaring this artist")
	runCmd.Flags().Bool("restart", false, "Resume from the last committed song instead of starting over")
	runCmd.Flags().StringSlice("platforms", nil, "Comma-separated platforms to query (default: all enabled)")
	runCmd.Flags().Bool("dev", false, "Serve every platform from the built-in fixture")
	_ = runCmd.MarkFlagRequired("statement")
}

func loadStatement(cfg *config.Config, path, artist string) (*statement.Statement, error) {
	stmt, err := statement.ReadFile(path, cfg.StatementColumns())
	if err != nil {
		return nil, err
	}
	if artist != "" {
		stmt = stmt.FilterArtist(artist)
		if len(stmt.Records) == 0 {
			return nil, fmt.Errorf("no statement rows declare artist %q", artist)
		}
	}
	utils.Log.Infof("Loaded %d statement rows (%d songs) from %s", len(stmt.Records), len(stmt.Songs()), path)
	return stmt, nil
}

// openResults locks and opens the results database. The returned func
// releases the lock.
func openResults(cfg *config.Config) (*storage.DB, func(), error) {
	path, err := utils.GetAbsDBPath(cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	lock, err := utils.NewDBLock(path)
	if err != nil {
		return nil, nil, err
	}
	if err := lock.Lock(); err != nil {
		return nil, nil, err
	}
	unlock := func() {
		if err := lock.Unlock(); err != nil {
			utils.Log.Warnf("%v", err)
		}
	}
	db, err := storage.Open(path)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return db, unlock, nil
}

func newSummarizer(cfg *config.Config) summary.Summarizer {
	return summary.Summarizer{Platforms: cfg.PlatformNames(), Aliases: cfg.Aliases()}
}

// writeReports concatenates every stored song of the run into the report
// sheets and prints the summary table.
func writeReports(cmd *cobra.Command, db *storage.DB, cfg *config.Config, runKey string) error {
	reports, err := db.ListSongResults(cmd.Context(), runKey)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		utils.Log.Warnf("No stored results for %s", runKey)
		return nil
	}
	paths, err := report.WriteSheets(cfg.OutputDir(), reports, cfg.Aliases())
	if err != nil {
		return err
	}
	for _, p := range paths {
		utils.Log.Infof("Wrote %s", p)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.RenderSummaryTable(reports))
	logDropped(reports)
	return nil
}

func logDropped(reports []catalog.SongReport) {
	for _, r := range reports {
		if len(r.Dropped) > 0 {
			utils.Log.Debugf("%s: %d rows share no track name with the statement: %v", r.Song, len(r.Dropped), r.Dropped)
		}
	}
}
