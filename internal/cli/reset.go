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
		Use:   "reset",
		Short: "Clear every item, counter and insight in the namespace",
		Run:   runReset,
	}

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	var st model.State
	err := withStore(cmd.Context(), true, func(s *store.Store) error {
		s.Reset()
		st = s.State()
		return nil
	})
	if err != nil {
		exitErr("reset", err)
	}

	b, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(b))
}
