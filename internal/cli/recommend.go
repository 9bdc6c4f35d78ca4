package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest count, quality and access optimizations",
		Run:   runRecommend,
	}

	cmd.Flags().Float64P("target", "t", 0, "Efficiency target in [0, 1] (default: config efficiency_target)")

	RootCmd.AddCommand(cmd)
}

func runRecommend(cmd *cobra.Command, args []string) {
	target, _ := cmd.Flags().GetFloat64("target")

	var recs efficiency.Recommendations
	err := withStore(cmd.Context(), false, func(s *store.Store) error {
		if !cmd.Flags().Changed("target") {
			target = s.EfficiencyTarget()
		}
		var err error
		recs, err = s.Recommend(target)
		return err
	})
	if err != nil {
		exitErr("recommend", err)
	}

	b, _ := json.MarshalIndent(recs, "", "  ")
	fmt.Println(string(b))
}
