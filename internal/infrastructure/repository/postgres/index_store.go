package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// IndexStore persists serialized lexical indexes, one row per granularity.
// Rebuilds replace the row atomically via upsert.
type IndexStore struct {
	db *sql.DB
}

func NewIndexStore(db *sql.DB) *IndexStore {
	return &IndexStore{db: db}
}

func (s *IndexStore) Save(ctx context.Context, idx *domain.InvertedIndex) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("validate index before save: %w", err)
	}
	payload, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index payload: %w", err)
	}

	const query = `
INSERT INTO lexical_indexes (granularity, payload, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (granularity) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
`
	if _, err := s.db.ExecContext(ctx, query, string(idx.IndexType), payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert index %s: %w", idx.IndexType, err)
	}
	return nil
}

func (s *IndexStore) Load(ctx context.Context, granularity domain.Granularity) (*domain.InvertedIndex, error) {
	const query = `SELECT payload FROM lexical_indexes WHERE granularity = $1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, string(granularity)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrNotFound, "load index",
			fmt.Errorf("no index for granularity %q", granularity))
	}
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", granularity, err)
	}

	var idx domain.InvertedIndex
	if err := json.Unmarshal(payload, &idx); err != nil {
		return nil, domain.WrapError(domain.ErrIndexCorrupt, "load index", err)
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return &idx, nil
}
