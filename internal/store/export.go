package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ExportVersion identifies the export document layout.
const ExportVersion = 1

// Export is a portable dump of one or more namespaces.
type Export struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Namespaces []NamespaceExport `json:"namespaces"`
}

// NamespaceExport is the snapshot of a single namespace.
type NamespaceExport struct {
	NS       string   `json:"ns"`
	Snapshot Snapshot `json:"snapshot"`
}

// ExportAll returns the snapshots of every namespace, or only ns when it is non-empty.
func (s *SQLiteStore) ExportAll(ctx context.Context, ns string) (*Export, error) {
	exp := &Export{Version: ExportVersion, ExportedAt: time.Now().UTC()}

	var names []string
	if ns != "" {
		names = []string{ns}
	} else {
		infos, err := s.ListNamespaces(ctx)
		if err != nil {
			return nil, err
		}
		for _, ni := range infos {
			names = append(names, ni.NS)
		}
	}

	for _, name := range names {
		snap, err := s.Load(ctx, name)
		if err != nil {
			return nil, errors.Wrapf(err, "export %s", name)
		}
		exp.Namespaces = append(exp.Namespaces, NamespaceExport{NS: name, Snapshot: snap})
	}
	return exp, nil
}

// Import validates each namespace by restoring it into a Store built from
// opts, then saves it, replacing any existing state for that namespace.
// It returns the number of items imported.
func (s *SQLiteStore) Import(ctx context.Context, exp *Export, opts Options) (int, error) {
	if exp.Version != ExportVersion {
		return 0, errors.Wrapf(ErrInvalidSnapshot, "unsupported export version %d", exp.Version)
	}

	imported := 0
	for _, ne := range exp.Namespaces {
		if ne.NS == "" {
			return imported, errors.Wrap(ErrInvalidSnapshot, "namespace without name")
		}
		o := opts
		o.NS = ne.NS
		st := New(o)
		if err := st.Restore(ne.Snapshot); err != nil {
			return imported, errors.Wrapf(err, "import %s", ne.NS)
		}
		snap := st.Snapshot()
		if err := s.Save(ctx, ne.NS, snap); err != nil {
			return imported, errors.Wrapf(err, "import %s", ne.NS)
		}
		imported += len(snap.Items)
	}
	return imported, nil
}
