// Package store persists dataset rows between pipeline commands.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/internal/model"
)

// RowFilter selects rows of one dataset.
type RowFilter struct {
	Dataset  string        `json:"dataset"`
	Stages   []model.Stage `json:"stages,omitempty"`
	ParentID string        `json:"parent_id,omitempty"`
	Limit    int           `json:"limit,omitempty"`
}

// Store defines the persistence interface for the dataset pipeline. Rows are
// listed in ordinal order, then in the order they were written.
type Store interface {
	// Rows
	SaveRows(ctx context.Context, rows []model.Row) error
	ReplaceRows(ctx context.Context, dataset string, parentIDs []string, rows []model.Row) error
	UpdateRows(ctx context.Context, rows []model.Row) error
	ListRows(ctx context.Context, filter RowFilter) ([]model.Row, error)
	CountStages(ctx context.Context, dataset string) (map[model.Stage]int, error)

	// Annotator registry
	RegisterAnnotator(ctx context.Context, dataset, annotator string) error
	Annotators(ctx context.Context, dataset string) (*model.Registry, error)

	// Rejections
	SaveRejections(ctx context.Context, rejections []model.Rejection) error
	ListRejections(ctx context.Context, dataset string) ([]model.Rejection, error)

	DeleteDataset(ctx context.Context, dataset string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// rowRecord is the column projection of a row.
type rowRecord struct {
	ID       string
	Dataset  string
	ParentID string
	Ordinal  int
	Seq      int
	Stage    string
	Doc      []byte
}

func toRecords(rows []model.Row) ([]rowRecord, error) {
	out := make([]rowRecord, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return nil, eris.Errorf("store: row %d has no id", i)
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal row %s", r.ID)
		}
		out[i] = rowRecord{
			ID:       r.ID,
			Dataset:  r.Dataset,
			ParentID: r.ParentID,
			Ordinal:  r.Ordinal,
			Seq:      i,
			Stage:    string(r.Stage),
			Doc:      doc,
		}
	}
	return out, nil
}

func decodeRow(doc []byte) (model.Row, error) {
	var r model.Row
	if err := json.Unmarshal(doc, &r); err != nil {
		return model.Row{}, eris.Wrap(err, "store: unmarshal row")
	}
	return r, nil
}

// rejectionNamespace seeds deterministic rejection ids.
var rejectionNamespace = uuid.MustParse("4c3f8f1e-6a0b-5d4e-9b7a-2f1c0d9e8a61")

// RejectionID returns the id of the rejection of rowID at stage. A row
// rejected again at the same stage keeps its id, so re-runs overwrite
// instead of piling up duplicates.
func RejectionID(dataset, rowID string, stage model.Stage) string {
	return uuid.NewSHA1(rejectionNamespace, []byte(dataset+"/"+rowID+"/"+string(stage))).String()
}

// prepareRejections fills ids and timestamps. Rejections sharing an id are
// collapsed to the last one, keeping first-seen order.
func prepareRejections(rejections []model.Rejection) []model.Rejection {
	now := time.Now().UTC()
	out := make([]model.Rejection, 0, len(rejections))
	index := make(map[string]int, len(rejections))
	for _, r := range rejections {
		if r.ID == "" {
			r.ID = RejectionID(r.Dataset, r.RowID, r.Stage)
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

func stageStrings(stages []model.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
