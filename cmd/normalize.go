package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cmaudit/claimscope/pkg/normalize"
	"github.com/cmaudit/claimscope/pkg/report"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [title...]",
	Short: "Show how platform track titles are split into track, version and artists",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := table.NewWriter()
		tw.SetStyle(report.TableStyle)
		tw.AppendHeader(table.Row{"Title", "Track", "Version", "Additional Artists"})
		for _, raw := range args {
			t := normalize.ParseTitle(raw)
			tw.AppendRow(table.Row{raw, t.Track, t.Version(), t.AdditionalArtists})
		}
		fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
