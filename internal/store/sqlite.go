package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/qa-dataset/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS qa_rows (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	ordinal    INTEGER NOT NULL,
	seq        INTEGER NOT NULL DEFAULT 0,
	stage      TEXT NOT NULL,
	doc        TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS qa_annotators (
	dataset   TEXT NOT NULL,
	annotator TEXT NOT NULL,
	position  INTEGER NOT NULL,
	PRIMARY KEY (dataset, annotator)
);

CREATE TABLE IF NOT EXISTS qa_rejections (
	id         TEXT PRIMARY KEY,
	dataset    TEXT NOT NULL,
	row_id     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	error      TEXT NOT NULL,
	answer     TEXT NOT NULL DEFAULT '',
	requested  INTEGER NOT NULL DEFAULT 0,
	found      INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_qa_rows_dataset_stage ON qa_rows(dataset, stage);
CREATE INDEX IF NOT EXISTS idx_qa_rows_order ON qa_rows(dataset, ordinal, seq);
CREATE INDEX IF NOT EXISTS idx_qa_rows_parent ON qa_rows(parent_id);
CREATE INDEX IF NOT EXISTS idx_qa_rejections_dataset ON qa_rejections(dataset);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertRow = `INSERT INTO qa_rows (id, dataset, parent_id, ordinal, seq, stage, doc, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	dataset = excluded.dataset, parent_id = excluded.parent_id, ordinal = excluded.ordinal,
	seq = excluded.seq, stage = excluded.stage, doc = excluded.doc, updated_at = excluded.updated_at`

func (s *SQLiteStore) SaveRows(ctx context.Context, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	return s.inTx(ctx, "save rows", func(tx *sql.Tx) error {
		return insertRows(ctx, tx, recs)
	})
}

func insertRows(ctx context.Context, tx *sql.Tx, recs []rowRecord) error {
	stmt, err := tx.PrepareContext(ctx, sqliteUpsertRow)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert row")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Dataset, r.ParentID, r.Ordinal, r.Seq, r.Stage, string(r.Doc), now); err != nil {
			return eris.Wrapf(err, "sqlite: upsert row %s", r.ID)
		}
	}
	return nil
}

// ReplaceRows deletes the parent rows, and any rows previously expanded from
// them, and writes rows in their place in one transaction.
func (s *SQLiteStore) ReplaceRows(ctx context.Context, dataset string, parentIDs []string, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	return s.inTx(ctx, "replace rows", func(tx *sql.Tx) error {
		for _, id := range parentIDs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM qa_rows WHERE dataset = ? AND (id = ? OR parent_id = ?)`,
				dataset, id, id,
			); err != nil {
				return eris.Wrapf(err, "sqlite: delete parent %s", id)
			}
		}
		return insertRows(ctx, tx, recs)
	})
}

func (s *SQLiteStore) UpdateRows(ctx context.Context, rows []model.Row) error {
	recs, err := toRecords(rows)
	if err != nil {
		return err
	}
	return s.inTx(ctx, "update rows", func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, r := range recs {
			res, err := tx.ExecContext(ctx,
				`UPDATE qa_rows SET stage = ?, doc = ?, updated_at = ? WHERE id = ?`,
				r.Stage, string(r.Doc), now, r.ID,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: update row %s", r.ID)
			}
			if err := checkRowsAffected(res, "row", r.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListRows(ctx context.Context, filter RowFilter) ([]model.Row, error) {
	query := `SELECT doc FROM qa_rows WHERE dataset = ?`
	args := []any{filter.Dataset}

	if len(filter.Stages) > 0 {
		query += ` AND stage IN (` + strings.TrimSuffix(strings.Repeat("?,", len(filter.Stages)), ",") + `)`
		for _, st := range stageStrings(filter.Stages) {
			args = append(args, st)
		}
	}
	if filter.ParentID != "" {
		query += ` AND parent_id = ?`
		args = append(args, filter.ParentID)
	}
	query += ` ORDER BY ordinal, seq, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rows")
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		r, err := decodeRow([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rows iterate")
}

func (s *SQLiteStore) CountStages(ctx context.Context, dataset string) (map[model.Stage]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, COUNT(*) FROM qa_rows WHERE dataset = ? GROUP BY stage`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count stages")
	}
	defer rows.Close()

	counts := make(map[model.Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage count")
		}
		counts[model.Stage(stage)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count stages iterate")
}

func (s *SQLiteStore) RegisterAnnotator(ctx context.Context, dataset, annotator string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO qa_annotators (dataset, annotator, position)
		 SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM qa_annotators WHERE dataset = ?`,
		dataset, annotator, dataset,
	)
	return eris.Wrapf(err, "sqlite: register annotator %s", annotator)
}

func (s *SQLiteStore) Annotators(ctx context.Context, dataset string) (*model.Registry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT annotator FROM qa_annotators WHERE dataset = ? ORDER BY position`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list annotators")
	}
	defer rows.Close()

	reg := model.NewRegistry()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan annotator")
		}
		reg.Register(id)
	}
	return reg, eris.Wrap(rows.Err(), "sqlite: list annotators iterate")
}

func (s *SQLiteStore) SaveRejections(ctx context.Context, rejections []model.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}
	return s.inTx(ctx, "save rejections", func(tx *sql.Tx) error {
		for _, r := range prepareRejections(rejections) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO qa_rejections (id, dataset, row_id, stage, error, answer, requested, found, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
					error = excluded.error, answer = excluded.answer, requested = excluded.requested,
					found = excluded.found, created_at = excluded.created_at`,
				r.ID, r.Dataset, r.RowID, string(r.Stage), r.Error, r.Answer, r.Requested, r.Found, r.CreatedAt,
			); err != nil {
				return eris.Wrapf(err, "sqlite: upsert rejection for row %s", r.RowID)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) ListRejections(ctx context.Context, dataset string) ([]model.Rejection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset, row_id, stage, error, answer, requested, found, created_at
		 FROM qa_rejections WHERE dataset = ? ORDER BY created_at, id`, dataset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rejections")
	}
	defer rows.Close()

	var out []model.Rejection
	for rows.Next() {
		var r model.Rejection
		var stage string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.RowID, &stage, &r.Error, &r.Answer, &r.Requested, &r.Found, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rejection")
		}
		r.Stage = model.Stage(stage)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rejections iterate")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, dataset string) error {
	return s.inTx(ctx, "delete dataset", func(tx *sql.Tx) error {
		for _, table := range []string{"qa_rows", "qa_annotators", "qa_rejections"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE dataset = ?`, dataset); err != nil {
				return eris.Wrapf(err, "sqlite: delete from %s", table)
			}
		}
		return nil
	})
}

// helpers

func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin %s", op)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", op)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
