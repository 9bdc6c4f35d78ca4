package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/reasoning-memory/internal/metrics"
	"github.com/rcliao/reasoning-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics for every namespace",
		Long:  "Serve /metrics on --addr. Store gauges are refreshed from the database every --interval.",
		Run:   runMetrics,
	}

	cmd.Flags().String("addr", "", "Listen address (default: config metrics_addr)")
	cmd.Flags().Duration("interval", 30*time.Second, "Refresh interval")

	RootCmd.AddCommand(cmd)
}

func runMetrics(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	interval, _ := cmd.Flags().GetDuration("interval")
	if addr == "" {
		addr = cfg.MetricsAddr
	}

	db, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer db.Close()

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	if err := refreshMetrics(cmd.Context(), db, exporter); err != nil {
		exitErr("load namespaces", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case <-ticker.C:
				if err := refreshMetrics(ctx, db, exporter); err != nil {
					logger.Warn("refresh metrics", "error", err)
				}
			}
		}
	})
	if err := g.Wait(); err != nil {
		exitErr("metrics", err)
	}
}

// refreshMetrics restores every namespace into a throwaway Store whose
// recorder is the exporter, which sets the per-namespace gauges, then syncs
// the persisted counters. Namespaces no longer in the database are dropped.
func refreshMetrics(ctx context.Context, db *store.SQLiteStore, exporter *metrics.PrometheusExporter) error {
	infos, err := db.ListNamespaces(ctx)
	if err != nil {
		return err
	}
	live := make(map[string]bool, len(infos))
	for _, ni := range infos {
		live[ni.NS] = true
		snap, err := db.Load(ctx, ni.NS)
		if err != nil {
			return err
		}
		o := storeOptions(ni.NS)
		o.Recorder = exporter
		s := store.New(o)
		if err := s.Restore(snap); err != nil {
			logger.Warn("skip namespace", "ns", ni.NS, "error", err)
			continue
		}
		exporter.Sync(ni.NS, s.Totals(), snap.Samples)
	}
	for _, ns := range exporter.Synced() {
		if !live[ns] {
			exporter.Forget(ns)
		}
	}
	return nil
}
