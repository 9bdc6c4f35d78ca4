package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/reasoning-memory/internal/model"
	"github.com/rcliao/reasoning-memory/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [query]",
		Short: "Retrieve the most relevant memory items",
		Long:  "Rank live items against the query text and context. Returned items have their access counts incremented.",
		Run:   runGet,
	}

	cmd.Flags().StringP("context", "c", "", "Query context as a JSON object")
	cmd.Flags().IntP("limit", "l", 5, "Maximum number of results")
	cmd.Flags().Float64("min-relevance", -1, "Minimum relevance in [0, 1] (default: config min_relevance)")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	ctxJSON, _ := cmd.Flags().GetString("context")
	limit, _ := cmd.Flags().GetInt("limit")
	minRelevance, _ := cmd.Flags().GetFloat64("min-relevance")
	if !cmd.Flags().Changed("min-relevance") {
		minRelevance = cfg.MinRelevance
	}

	c, err := model.ParseContext(ctxJSON)
	if err != nil {
		exitErr("parse context", err)
	}

	var res *model.RetrievalResult
	err = withStore(cmd.Context(), true, func(s *store.Store) error {
		var err error
		res, err = s.Get(cmd.Context(), strings.Join(args, " "), c, limit, minRelevance)
		return err
	})
	if err != nil {
		exitErr("get", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
