// Package cli implements the reasoning-memory CLI commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rcliao/reasoning-memory/internal/config"
	"github.com/rcliao/reasoning-memory/internal/scorer"
	"github.com/rcliao/reasoning-memory/internal/store"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  = slog.Default()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "reasoning-memory",
	Short: "Bounded, value-scored memory for reasoning agents",
	Long: "A CLI over a capacity-bounded memory store. Items are scored for reasoning value, " +
		"retrieved by relevance and periodically consolidated. SQLite-backed, one snapshot per namespace.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	f := RootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	f.StringP("db", "d", "", "Database path (default: $REASONING_MEMORY_DB or ~/.reasoning-memory/memory.db)")
	f.StringP("ns", "n", store.DefaultNamespace, "Namespace")
	f.Int("capacity", store.DefaultCapacity, "Maximum number of live items")
	f.String("log-level", "info", "Log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"db":        "db",
		"ns":        "ns",
		"capacity":  "capacity",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB)
}

func storeOptions(ns string) store.Options {
	o := store.Options{
		NS:               ns,
		Capacity:         cfg.Capacity,
		EfficiencyTarget: cfg.EfficiencyTarget,
		MaxResultsCap:    cfg.MaxResultsCap,
		HistorySize:      cfg.HistorySize,
		Logger:           logger,
	}
	if c := scorer.ParseCommand(cfg.ScorerCommand); c != nil {
		o.Scorer = scorer.NewFallback(c, cfg.ScorerTimeout, logger)
	}
	return o
}

// withStore runs fn on the configured namespace. When save is true the load,
// fn and save happen inside one write transaction, so concurrent invocations
// on the same database are serialized. A failing fn leaves the namespace untouched.
func withStore(ctx context.Context, save bool, fn func(*store.Store) error) error {
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	run := func(snap store.Snapshot) (store.Snapshot, error) {
		s := store.New(storeOptions(cfg.NS))
		if err := s.Restore(snap); err != nil {
			return snap, fmt.Errorf("restore %s: %w", cfg.NS, err)
		}
		if err := fn(s); err != nil {
			return snap, err
		}
		return s.Snapshot(), nil
	}

	if !save {
		snap, err := db.Load(ctx, cfg.NS)
		if err != nil {
			return fmt.Errorf("load %s: %w", cfg.NS, err)
		}
		_, err = run(snap)
		return err
	}
	return db.Update(ctx, cfg.NS, run)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
