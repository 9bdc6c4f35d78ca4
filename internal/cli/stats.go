package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/reasoning-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory and efficiency sample counts per namespace",
		Long: `Show memory and efficiency sample counts per namespace.

With --counters, each saved namespace also reports its lifetime totals
(puts, evictions, retrievals, consolidations, merged groups, pruned items).`,
		Run: runStats,
	}
	cmd.Flags().Bool("counters", false, "Include lifetime totals per namespace")

	RootCmd.AddCommand(cmd)
}

type statsReport struct {
	*store.Stats
	Totals map[string]store.Totals `json:"totals,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	counters, _ := cmd.Flags().GetBool("counters")
	report, err := buildStats(cmd.Context(), s, cfg.DB, counters)
	if err != nil {
		exitErr("stats", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}

func buildStats(ctx context.Context, db *store.SQLiteStore, path string, counters bool) (*statsReport, error) {
	st, err := db.Stats(ctx, path)
	if err != nil {
		return nil, err
	}
	report := &statsReport{Stats: st}
	if !counters {
		return report, nil
	}

	infos, err := db.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	report.Totals = make(map[string]store.Totals, len(infos))
	for _, ni := range infos {
		snap, err := db.Load(ctx, ni.NS)
		if err != nil {
			return nil, err
		}
		s := store.New(storeOptions(ni.NS))
		if err := s.Restore(snap); err != nil {
			logger.Warn("skip namespace", "ns", ni.NS, "error", err)
			continue
		}
		report.Totals[ni.NS] = s.Totals()
	}
	return report, nil
}
