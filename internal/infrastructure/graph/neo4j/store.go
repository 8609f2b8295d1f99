package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// Store answers entity queries against the knowledge graph. Entity nodes
// carry the unit id of the fragment they were extracted from, so graph hits
// hydrate straight into candidates.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver, database: database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// MatchEntities looks for related pairs among the extracted entity names
// first; when no pair of entities is connected it falls back to single-node
// matches. Pair hits carry higher confidence than single-node hits.
func (s *Store) MatchEntities(ctx context.Context, names []string, topK int) ([]domain.Candidate, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 10
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	candidates, err := s.matchPairs(ctx, session, names, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates, err = s.matchSingle(ctx, session, names, topK)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].GraphConfidence > candidates[j].GraphConfidence
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *Store) matchPairs(ctx context.Context, session neo4j.SessionWithContext, names []string, topK int) ([]domain.Candidate, error) {
	const query = `
MATCH (a:Entity)-[r]-(b:Entity)
WHERE a.name IN $names AND b.name IN $names AND a.name < b.name
RETURN a.name AS left, b.name AS right, type(r) AS relation,
       a.unit_id AS unit_id, a.section_id AS section_id,
       a.excerpt AS excerpt, coalesce(r.weight, 1.0) AS weight
ORDER BY weight DESC
LIMIT $limit
`
	result, err := session.Run(ctx, query, map[string]any{"names": names, "limit": topK})
	if err != nil {
		return nil, fmt.Errorf("run entity pair query: %w", err)
	}

	var out []domain.Candidate
	for result.Next(ctx) {
		rec := result.Record()
		left := stringValue(rec, "left")
		right := stringValue(rec, "right")
		relation := stringValue(rec, "relation")
		weight := floatValue(rec, "weight")

		out = append(out, domain.Candidate{
			UnitID:          stringValue(rec, "unit_id"),
			SectionID:       stringValue(rec, "section_id"),
			Title:           fmt.Sprintf("%s %s %s", left, relation, right),
			Content:         stringValue(rec, "excerpt"),
			Source:          domain.SourceGraph,
			RawScore:        weight,
			GraphConfidence: pairConfidence(weight),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity pair result: %w", err)
	}
	return out, nil
}

func (s *Store) matchSingle(ctx context.Context, session neo4j.SessionWithContext, names []string, topK int) ([]domain.Candidate, error) {
	const query = `
MATCH (e:Entity)
WHERE e.name IN $names
RETURN e.name AS name, e.unit_id AS unit_id, e.section_id AS section_id,
       e.excerpt AS excerpt
LIMIT $limit
`
	result, err := session.Run(ctx, query, map[string]any{"names": names, "limit": topK})
	if err != nil {
		return nil, fmt.Errorf("run single entity query: %w", err)
	}

	var out []domain.Candidate
	for result.Next(ctx) {
		rec := result.Record()
		out = append(out, domain.Candidate{
			UnitID:          stringValue(rec, "unit_id"),
			SectionID:       stringValue(rec, "section_id"),
			Title:           stringValue(rec, "name"),
			Content:         stringValue(rec, "excerpt"),
			Source:          domain.SourceGraph,
			RawScore:        singleNodeConfidence,
			GraphConfidence: singleNodeConfidence,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate single entity result: %w", err)
	}
	return out, nil
}

const singleNodeConfidence = 0.6

// pairConfidence maps a relation weight into (0.8, 1.0]: a connected pair is
// always more trusted than a lone node hit.
func pairConfidence(weight float64) float64 {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	return 0.8 + 0.2*weight
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

func floatValue(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}
