package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/rcliao/reasoning-memory/internal/efficiency"
	"github.com/rcliao/reasoning-memory/internal/model"
)

// SQLiteStore persists Store snapshots, one per namespace.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT NOT NULL,
		ns               TEXT NOT NULL,
		content          TEXT NOT NULL,
		context          TEXT,
		reasoning_value  REAL NOT NULL,
		created_at       TEXT NOT NULL,
		access_count     INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TEXT,
		PRIMARY KEY (ns, id)
	);
	CREATE INDEX IF NOT EXISTS idx_memories_ns_value ON memories(ns, reasoning_value);

	CREATE TABLE IF NOT EXISTS store_state (
		ns                  TEXT PRIMARY KEY,
		consolidation_count INTEGER NOT NULL DEFAULT 0,
		interaction_count   INTEGER NOT NULL DEFAULT 0,
		insights            TEXT,
		updated_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS efficiency_samples (
		ns          TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		recorded_at TEXT NOT NULL,
		efficiency  REAL NOT NULL,
		retrieved   INTEGER NOT NULL,
		total       INTEGER NOT NULL,
		PRIMARY KEY (ns, seq)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Counter columns added after the first schema.
	for _, col := range []string{"eviction_count", "merged_group_count", "pruned_count", "total_measurements"} {
		if err := s.addColumn("store_state", col, "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) addColumn(table, col, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == col {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = s.db.Exec(`ALTER TABLE ` + table + ` ADD COLUMN ` + col + ` ` + decl)
	return errors.Wrapf(err, "add column %s.%s", table, col)
}

// querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Update loads ns, passes the snapshot to fn and saves what fn returns, all
// inside one write transaction. Concurrent updates of the same database,
// from this process or another, are serialized and never lose each other's
// changes. Nothing is written when fn fails.
func (s *SQLiteStore) Update(ctx context.Context, ns string, fn func(Snapshot) (Snapshot, error)) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	// BEGIN IMMEDIATE takes the write lock before the read, so no other
	// writer can slip in between load and save.
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return errors.Wrap(err, "begin immediate")
	}
	defer func() {
		if err != nil {
			conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		}
	}()

	snap, err := load(ctx, conn, ns)
	if err != nil {
		return err
	}
	next, err := fn(snap)
	if err != nil {
		return err
	}
	if err = save(ctx, conn, ns, next); err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `COMMIT`)
	return errors.Wrap(err, "commit")
}

// Save replaces everything stored for ns with snap in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, ns string, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if err := save(ctx, tx, ns, snap); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func save(ctx context.Context, q querier, ns string, snap Snapshot) error {
	if err := dropNamespace(ctx, q, ns); err != nil {
		return err
	}

	for _, it := range snap.Items {
		var ctxJSON *string
		if len(it.Context) > 0 {
			b, err := json.Marshal(it.Context)
			if err != nil {
				return errors.Wrapf(err, "encode context of %s", it.ID)
			}
			v := string(b)
			ctxJSON = &v
		}
		var lastAccessed *string
		if it.LastAccessedAt != nil {
			v := it.LastAccessedAt.UTC().Format(time.RFC3339Nano)
			lastAccessed = &v
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO memories (id, ns, content, context, reasoning_value, created_at, access_count, last_accessed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, ns, it.Content, ctxJSON, it.ReasoningValue,
			it.CreatedAt.UTC().Format(time.RFC3339Nano), it.AccessCount, lastAccessed)
		if err != nil {
			return errors.Wrapf(err, "insert memory %s", it.ID)
		}
	}

	insights, err := json.Marshal(snap.Insights)
	if err != nil {
		return errors.Wrap(err, "encode insights")
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO store_state (ns, consolidation_count, interaction_count, eviction_count,
		   merged_group_count, pruned_count, total_measurements, insights, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ns, snap.ConsolidationCount, snap.InteractionCount, snap.EvictionCount,
		snap.MergedGroupCount, snap.PrunedCount, snap.TotalMeasurements, string(insights),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(err, "insert state")
	}

	for i, smp := range snap.Samples {
		_, err = q.ExecContext(ctx,
			`INSERT INTO efficiency_samples (ns, seq, recorded_at, efficiency, retrieved, total)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ns, i, smp.RecordedAt.UTC().Format(time.RFC3339Nano), smp.Efficiency, smp.Retrieved, smp.Total)
		if err != nil {
			return errors.Wrap(err, "insert efficiency sample")
		}
	}
	return nil
}

// Load returns the snapshot stored for ns. An unknown namespace yields an empty snapshot.
func (s *SQLiteStore) Load(ctx context.Context, ns string) (Snapshot, error) {
	return load(ctx, s.db, ns)
}

func load(ctx context.Context, q querier, ns string) (Snapshot, error) {
	var snap Snapshot

	var insights sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT consolidation_count, interaction_count, eviction_count, merged_group_count,
		   pruned_count, total_measurements, insights
		 FROM store_state WHERE ns = ?`, ns,
	).Scan(&snap.ConsolidationCount, &snap.InteractionCount, &snap.EvictionCount, &snap.MergedGroupCount,
		&snap.PrunedCount, &snap.TotalMeasurements, &insights)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return snap, errors.Wrap(err, "load state")
	case insights.Valid && insights.String != "":
		if err := json.Unmarshal([]byte(insights.String), &snap.Insights); err != nil {
			return snap, errors.Wrap(err, "decode insights")
		}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, content, context, reasoning_value, created_at, access_count, last_accessed_at
		 FROM memories WHERE ns = ? ORDER BY id`, ns)
	if err != nil {
		return snap, errors.Wrap(err, "load memories")
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanMemory(rows)
		if err != nil {
			return snap, err
		}
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return snap, errors.Wrap(err, "load memories")
	}

	snap.Samples, err = loadSamples(ctx, q, ns)
	return snap, err
}

func loadSamples(ctx context.Context, q querier, ns string) ([]efficiency.Sample, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT recorded_at, efficiency, retrieved, total FROM efficiency_samples WHERE ns = ? ORDER BY seq`, ns)
	if err != nil {
		return nil, errors.Wrap(err, "load samples")
	}
	defer rows.Close()

	var samples []efficiency.Sample
	for rows.Next() {
		var smp efficiency.Sample
		var recordedAt string
		if err := rows.Scan(&recordedAt, &smp.Efficiency, &smp.Retrieved, &smp.Total); err != nil {
			return nil, errors.Wrap(err, "scan sample")
		}
		smp.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		samples = append(samples, smp)
	}
	return samples, errors.Wrap(rows.Err(), "load samples")
}

// NamespaceInfo describes one persisted namespace.
type NamespaceInfo struct {
	NS                 string `json:"ns"`
	Count              int    `json:"count"`
	ConsolidationCount int    `json:"consolidation_count"`
	InteractionCount   int    `json:"interaction_count"`
}

// ListNamespaces returns every namespace with saved state, ordered by name.
func (s *SQLiteStore) ListNamespaces(ctx context.Context) ([]NamespaceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.ns, COUNT(m.id), st.consolidation_count, st.interaction_count
		FROM store_state st LEFT JOIN memories m ON m.ns = st.ns
		GROUP BY st.ns ORDER BY st.ns`)
	if err != nil {
		return nil, errors.Wrap(err, "list namespaces")
	}
	defer rows.Close()

	var out []NamespaceInfo
	for rows.Next() {
		var ni NamespaceInfo
		if err := rows.Scan(&ni.NS, &ni.Count, &ni.ConsolidationCount, &ni.InteractionCount); err != nil {
			return nil, errors.Wrap(err, "scan namespace")
		}
		out = append(out, ni)
	}
	return out, errors.Wrap(rows.Err(), "list namespaces")
}

// DropNamespace deletes everything stored for ns.
func (s *SQLiteStore) DropNamespace(ctx context.Context, ns string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()
	if err := dropNamespace(ctx, tx, ns); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func dropNamespace(ctx context.Context, q querier, ns string) error {
	for _, table := range []string{"memories", "store_state", "efficiency_samples"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE ns = ?`, ns); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (model.MemoryItem, error) {
	var m model.MemoryItem
	var ctxJSON, lastAccessed sql.NullString
	var createdAt string

	err := row.Scan(&m.ID, &m.Content, &ctxJSON, &m.ReasoningValue, &createdAt, &m.AccessCount, &lastAccessed)
	if err != nil {
		return m, errors.Wrap(err, "scan memory")
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339Nano, lastAccessed.String)
		m.LastAccessedAt = &t
	}
	if ctxJSON.Valid && ctxJSON.String != "" {
		if err := json.Unmarshal([]byte(ctxJSON.String), &m.Context); err != nil {
			return m, errors.Wrapf(err, "decode context of %s", m.ID)
		}
	}
	return m, nil
}
