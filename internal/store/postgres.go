package store

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/db"
	"github.com/sells-group/qa-dataset/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var rowColumns = []string{"id", "dataset", "parent_id", "ordinal", "seq", "stage", "doc", "updated_at"}

var rowUpsert = db.UpsertConfig{
	Table:        "qa_rows",
	Columns:      rowColumns,
	ConflictKeys: []string{"id"},
}

var rejectionColumns = []string{"id", "dataset", "row_id", "stage", "error", "answer", "requested", "found", "created_at"}

var rejectionUpsert = db.UpsertConfig{
	Table:        "qa_rejections",
	Columns:      rejectionColumns,
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"error", "answer", "requested", "found", "created_at"},
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS qa_rows (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	ordinal    INTEGER NOT NULL,
	seq        INTEGER NOT NULL DEFAULT 0,
	stage      TEXT NOT NULL,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS qa_annotators (
	dataset   TEXT NOT NULL,
	annotator TEXT NOT NULL,
	position  INTEGER NOT NULL,
	PRIMARY KEY (dataset, annotator)
);

CREATE TABLE IF NOT EXISTS qa_rejections (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset    TEXT NOT NULL,
	row_id     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	error      TEXT NOT NULL,
	answer     TEXT NOT NULL DEFAULT '',
	requested  INTEGER NOT NULL DEFAULT 0,
	found      INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_qa_rows_dataset_stage ON qa_rows(dataset, stage);
CREATE INDEX IF NOT EXISTS idx_qa_rows_order ON qa_rows(dataset, ordinal, seq);
CREATE INDEX IF NOT EXISTS idx_qa_rows_parent ON qa_rows(parent_id);
CREATE INDEX IF NOT EXISTS idx_qa_rejections_dataset ON qa_rejections(dataset);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func rowValues(recs []rowRecord) [][]any {
	now := time.Now().UTC()
	out := make([][]any, len(recs))
	for i, r := range recs {
		out[i] = []any{r.ID, r.Dataset, r.ParentID, r.Ordinal, r.Seq, r.Stage, r.Doc, now}
	}
	return out
}

func (s *PostgresStore) SaveRows(ctx context.Context, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	_, err = db.BulkUpsert(ctx, s.pool, rowUpsert, rowValues(recs))
	return eris.Wrap(err, "postgres: save rows")
}

// ReplaceRows deletes the parent rows, and any rows previously expanded from
// them, and copies rows in their place in one transaction.
func (s *PostgresStore) ReplaceRows(ctx context.Context, dataset string, parentIDs []string, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if len(parentIDs) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM qa_rows WHERE dataset = $1 AND (id = ANY($2) OR parent_id = ANY($2))`,
				dataset, parentIDs,
			); err != nil {
				return eris.Wrap(err, "postgres: delete parents")
			}
		}
		_, err := db.CopyFrom(ctx, tx, "qa_rows", rowColumns, rowValues(recs))
		return eris.Wrap(err, "postgres: replace rows")
	})
}

func (s *PostgresStore) UpdateRows(ctx context.Context, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, r := range recs {
			tag, err := tx.Exec(ctx,
				`UPDATE qa_rows SET stage = $1, doc = $2, updated_at = $3 WHERE id = $4`,
				r.Stage, r.Doc, now, r.ID,
			)
			if err != nil {
				return eris.Wrapf(err, "postgres: update row %s", r.ID)
			}
			if tag.RowsAffected() == 0 {
				return eris.Errorf("row not found: %s", r.ID)
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListRows(ctx context.Context, filter RowFilter) ([]model.Row, error) {
	query := `SELECT doc FROM qa_rows WHERE dataset = $1`
	args := []any{filter.Dataset}

	if len(filter.Stages) > 0 {
		args = append(args, stageStrings(filter.Stages))
		query += ` AND stage = ANY($2)`
	}
	if filter.ParentID != "" {
		args = append(args, filter.ParentID)
		query += ` AND parent_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY ordinal, seq, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rows")
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		r, err := decodeRow(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rows iterate")
}

func (s *PostgresStore) CountStages(ctx context.Context, dataset string) (map[model.Stage]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stage, COUNT(*) FROM qa_rows WHERE dataset = $1 GROUP BY stage`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count stages")
	}
	defer rows.Close()

	counts := make(map[model.Stage]int)
	for rows.Next() {
		var stage string
		var n int64
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage count")
		}
		counts[model.Stage(stage)] = int(n)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count stages iterate")
}

func (s *PostgresStore) RegisterAnnotator(ctx context.Context, dataset, annotator string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO qa_annotators (dataset, annotator, position)
		 SELECT $1, $2, COALESCE(MAX(position) + 1, 0) FROM qa_annotators WHERE dataset = $1
		 ON CONFLICT (dataset, annotator) DO NOTHING`,
		dataset, annotator,
	)
	return eris.Wrapf(err, "postgres: register annotator %s", annotator)
}

func (s *PostgresStore) Annotators(ctx context.Context, dataset string) (*model.Registry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT annotator FROM qa_annotators WHERE dataset = $1 ORDER BY position`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list annotators")
	}
	defer rows.Close()

	reg := model.NewRegistry()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan annotator")
		}
		reg.Register(id)
	}
	return reg, eris.Wrap(rows.Err(), "postgres: list annotators iterate")
}

func (s *PostgresStore) SaveRejections(ctx context.Context, rejections []model.Rejection) error {
	prepared := prepareRejections(rejections)
	values := make([][]any, len(prepared))
	for i, r := range prepared {
		values[i] = []any{r.ID, r.Dataset, r.RowID, string(r.Stage), r.Error, r.Answer, r.Requested, r.Found, r.CreatedAt}
	}
	_, err := db.BulkUpsert(ctx, s.pool, rejectionUpsert, values)
	return eris.Wrap(err, "postgres: save rejections")
}

func (s *PostgresStore) ListRejections(ctx context.Context, dataset string) ([]model.Rejection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset, row_id, stage, error, answer, requested, found, created_at
		 FROM qa_rejections WHERE dataset = $1 ORDER BY created_at, id`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rejections")
	}
	defer rows.Close()

	var out []model.Rejection
	for rows.Next() {
		var r model.Rejection
		var stage string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.RowID, &stage, &r.Error, &r.Answer, &r.Requested, &r.Found, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rejection")
		}
		r.Stage = model.Stage(stage)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rejections iterate")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, dataset string) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"qa_rows", "qa_annotators", "qa_rejections"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE dataset = $1`, dataset); err != nil {
				return eris.Wrapf(err, "postgres: delete from %s", table)
			}
		}
		return nil
	})
}
