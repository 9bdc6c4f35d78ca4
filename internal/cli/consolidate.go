package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge related items and prune toward an efficiency target",
		Run:   runConsolidate,
	}

	cmd.Flags().Float64P("target", "t", 0, "Efficiency target in [0, 1] (default: config efficiency_target)")

	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	target, _ := cmd.Flags().GetFloat64("target")

	var report *model.ConsolidationReport
	err := withStore(cmd.Context(), true, func(s *store.Store) error {
		if !cmd.Flags().Changed("target") {
			target = s.EfficiencyTarget()
		}
		var err error
		report, err = s.Consolidate(cmd.Context(), target)
		return err
	})
	if err != nil {
		exitErr("consolidate", err)
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
