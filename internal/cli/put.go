package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/store"
	"github.com/spf13/cobra"
)

type putOutput struct {
	ID            string                     `json:"id"`
	State         model.State                `json:"state"`
	Consolidation *model.ConsolidationReport `json:"consolidation,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory item",
		Long: "Store a memory item. Content can be a positional arg or piped via stdin. " +
			"Every consolidation_frequency puts a consolidation pass runs at the configured efficiency target.",
		Run: runPut,
	}

	cmd.Flags().StringP("context", "c", "", `Context as a JSON object, e.g. '{"domain":"physics"}'`)
	cmd.Flags().Float64P("priority", "p", 1.0, "Base priority in [0, 1]")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	ctxJSON, _ := cmd.Flags().GetString("context")
	priority, _ := cmd.Flags().GetFloat64("priority")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	c, err := model.ParseContext(ctxJSON)
	if err != nil {
		exitErr("parse context", err)
	}

	var out putOutput
	err = withStore(cmd.Context(), true, func(s *store.Store) error {
		id, err := s.Put(cmd.Context(), strings.TrimSpace(content), c, priority)
		if err != nil {
			return err
		}
		out.ID = id

		if n := cfg.ConsolidationFrequency; n > 0 && s.InteractionCount()%n == 0 {
			report, err := s.Consolidate(cmd.Context(), s.EfficiencyTarget())
			if err != nil {
				return fmt.Errorf("auto consolidate: %w", err)
			}
			out.Consolidation = report
		}
		out.State = s.State()
		return nil
	})
	if err != nil {
		exitErr("put", err)
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
