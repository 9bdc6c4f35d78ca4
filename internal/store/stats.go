package store

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// Stats holds database statistics.
type Stats struct {
	DBPath             string           `json:"db_path"`
	DBSizeBytes        int64            `json:"db_size_bytes"`
	TotalMemories      int              `json:"total_memories"`
	TotalSamples       int              `json:"total_efficiency_samples"`
	MeanReasoningValue float64          `json:"mean_reasoning_value"`
	Namespaces         []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds per-namespace aggregates.
type NamespaceStats struct {
	NS                 string  `json:"ns"`
	Count              int     `json:"count"`
	MeanReasoningValue float64 `json:"mean_reasoning_value"`
	TotalAccesses      int     `json:"total_accesses"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(reasoning_value), 0) FROM memories`,
	).Scan(&st.TotalMemories, &st.MeanReasoningValue)
	if err != nil {
		return st, errors.Wrap(err, "count memories")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM efficiency_samples`).Scan(&st.TotalSamples); err != nil {
		return st, errors.Wrap(err, "count samples")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ns, COUNT(*) AS cnt, AVG(reasoning_value), SUM(access_count)
		FROM memories
		GROUP BY ns ORDER BY cnt DESC, ns`)
	if err != nil {
		return st, errors.Wrap(err, "namespace stats")
	}
	defer rows.Close()

	for rows.Next() {
		var ns NamespaceStats
		if err := rows.Scan(&ns.NS, &ns.Count, &ns.MeanReasoningValue, &ns.TotalAccesses); err != nil {
			return st, errors.Wrap(err, "scan namespace stats")
		}
		st.Namespaces = append(st.Namespaces, ns)
	}
	return st, errors.Wrap(rows.Err(), "namespace stats")
}
