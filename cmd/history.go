package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sonata/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show")
}

func historyRun(cmd *cobra.Command, args []string) error {
	path, err := cfg.HistoryPath()
	if err != nil {
		return fmt.Errorf("resolving history path: %w", err)
	}

	hist, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer hist.Close()

	entries, err := hist.Recent(historyLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	for _, e := range entries {
		position := ""
		if e.DurationSec > 0 {
			position = fmt.Sprintf("  %s/%s", formatSeconds(e.PositionSec), formatSeconds(e.DurationSec))
		}
		fmt.Printf("%s  %s (%d plays)%s\n",
			e.LastPlayedAt.Local().Format("2006-01-02 15:04"),
			e.Title, e.PlayCount, position)
	}
	return nil
}

func formatSeconds(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
