package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

type UnitRepository struct {
	db *sql.DB
}

func NewUnitRepository(db *sql.DB) *UnitRepository {
	return &UnitRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *UnitRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS document_units (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	content TEXT NOT NULL,
	granularity TEXT NOT NULL,
	parent_section_id TEXT,
	title TEXT,
	page_number INTEGER NOT NULL DEFAULT 0,
	bbox JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_units_document_id ON document_units(document_id);
CREATE INDEX IF NOT EXISTS idx_document_units_granularity ON document_units(granularity);

CREATE TABLE IF NOT EXISTS lexical_indexes (
	granularity TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *UnitRepository) CreateBatch(ctx context.Context, units []domain.DocumentUnit) error {
	if len(units) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO document_units (
	id, document_id, content, granularity, parent_section_id, title, page_number, bbox, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	for _, u := range units {
		bboxJSON, err := marshalBBox(u.BBox)
		if err != nil {
			return fmt.Errorf("marshal bbox for unit %s: %w", u.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			u.ID, u.DocumentID, u.Content, string(u.Granularity), u.ParentSectionID,
			u.Title, u.PageNumber, bboxJSON, u.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (r *UnitRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentUnit, error) {
	return r.list(ctx, `
SELECT id, document_id, content, granularity, parent_section_id, title, page_number, bbox, created_at
FROM document_units
WHERE document_id = $1
ORDER BY id
`, documentID)
}

func (r *UnitRepository) ListByGranularity(ctx context.Context, granularity domain.Granularity) ([]domain.DocumentUnit, error) {
	return r.list(ctx, `
SELECT id, document_id, content, granularity, parent_section_id, title, page_number, bbox, created_at
FROM document_units
WHERE granularity = $1
ORDER BY id
`, string(granularity))
}

func (r *UnitRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.DocumentUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal ids: %w", err)
	}
	return r.list(ctx, `
SELECT id, document_id, content, granularity, parent_section_id, title, page_number, bbox, created_at
FROM document_units
WHERE id IN (SELECT jsonb_array_elements_text($1::jsonb))
ORDER BY id
`, idsJSON)
}

func (r *UnitRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM document_units WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete units for document %s: %w", documentID, err)
	}
	return nil
}

func (r *UnitRepository) list(ctx context.Context, query string, arg any) ([]domain.DocumentUnit, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentUnit
	for rows.Next() {
		var u domain.DocumentUnit
		var granularity string
		var parentSectionID, title sql.NullString
		var bboxRaw []byte

		if err := rows.Scan(
			&u.ID, &u.DocumentID, &u.Content, &granularity, &parentSectionID,
			&title, &u.PageNumber, &bboxRaw, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}

		u.Granularity = domain.Granularity(granularity)
		u.ParentSectionID = parentSectionID.String
		u.Title = title.String
		if len(bboxRaw) > 0 {
			var bbox domain.BBox
			if err := json.Unmarshal(bboxRaw, &bbox); err != nil {
				return nil, fmt.Errorf("unmarshal bbox for unit %s: %w", u.ID, err)
			}
			u.BBox = &bbox
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return out, nil
}

func marshalBBox(bbox *domain.BBox) (any, error) {
	if bbox == nil {
		return nil, nil
	}
	return json.Marshal(bbox)
}
