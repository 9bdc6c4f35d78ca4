package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/store"
	"github.com/spf13/cobra"
)

type stateOutput struct {
	model.State
	Efficiency efficiency.Metrics `json:"efficiency"`
	Insights   []string           `json:"insights,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show store state and retrieval efficiency",
		Run:   runState,
	}

	cmd.Flags().Bool("insights", false, "Include accumulated consolidation insights")

	RootCmd.AddCommand(cmd)
}

func runState(cmd *cobra.Command, args []string) {
	withInsights, _ := cmd.Flags().GetBool("insights")

	var out stateOutput
	err := withStore(cmd.Context(), false, func(s *store.Store) error {
		out.State = s.State()
		out.Efficiency = s.EfficiencyMetrics()
		if withInsights {
			out.Insights = s.Insights()
		}
		return nil
	})
	if err != nil {
		exitErr("state", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
