package usecase

import (
	"strings"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/lexical"
)

type UnderstandingConfig struct {
	// TitleMaxTokens bounds the short-title heuristic.
	TitleMaxTokens int
	// TitleOverlap and FragmentOverlap are the two thresholds of the
	// domain-keyword similarity heuristic: above the first the query is a
	// title lookup, below the second it is fragment-style, in between both
	// paths run.
	TitleOverlap    float64
	FragmentOverlap float64

	TopKPerSource int

	WeightLexical float64
	WeightVector  float64
	WeightGraph   float64
}

func DefaultUnderstandingConfig() UnderstandingConfig {
	return UnderstandingConfig{
		TitleMaxTokens:  8,
		TitleOverlap:    0.5,
		FragmentOverlap: 0.2,
		TopKPerSource:   50,
		WeightLexical:   0.3,
		WeightVector:    0.4,
		WeightGraph:     0.3,
	}
}

// QueryUnderstanding classifies intent, extracts entities, expands synonyms
// and emits the per-query routing configuration.
type QueryUnderstanding struct {
	cfg      UnderstandingConfig
	synonyms *synonymTable
}

func NewQueryUnderstanding(cfg UnderstandingConfig) *QueryUnderstanding {
	def := DefaultUnderstandingConfig()
	if cfg.TitleMaxTokens <= 0 {
		cfg.TitleMaxTokens = def.TitleMaxTokens
	}
	if cfg.TitleOverlap <= 0 {
		cfg.TitleOverlap = def.TitleOverlap
	}
	if cfg.FragmentOverlap <= 0 {
		cfg.FragmentOverlap = def.FragmentOverlap
	}
	if cfg.TopKPerSource <= 0 {
		cfg.TopKPerSource = def.TopKPerSource
	}
	if cfg.WeightLexical <= 0 && cfg.WeightVector <= 0 && cfg.WeightGraph <= 0 {
		cfg.WeightLexical = def.WeightLexical
		cfg.WeightVector = def.WeightVector
		cfg.WeightGraph = def.WeightGraph
	}
	return &QueryUnderstanding{
		cfg:      cfg,
		synonyms: newSynonymTable(),
	}
}

func (qu *QueryUnderstanding) Understand(query string) domain.UnderstoodQuery {
	query = strings.TrimSpace(query)
	tokens := lexical.Tokenize(query)

	category := classifyCategory(query)
	intent := qu.classifyIntent(query, tokens, category)
	entities := extractEntities(query)
	expansions := qu.synonyms.Expand(query, tokens)

	return domain.UnderstoodQuery{
		Raw:        query,
		Tokens:     tokens,
		Intent:     intent,
		Category:   category,
		Entities:   entities,
		Expansions: expansions,
		Routing:    qu.route(intent, category),
	}
}

// classifyIntent applies, in priority order: the short-title heuristic, the
// category mapping, and the domain-keyword overlap heuristic.
func (qu *QueryUnderstanding) classifyIntent(query string, tokens []string, category domain.QueryCategory) domain.QueryIntent {
	if len(tokens) <= qu.cfg.TitleMaxTokens && definitionalKeywords.MatchString(query) {
		return domain.IntentTitle
	}

	switch category {
	case domain.CategoryDefinition:
		return domain.IntentTitle
	case domain.CategoryTable, domain.CategoryProcess:
		return domain.IntentFragment
	case domain.CategoryComparison, domain.CategoryRelation:
		return domain.IntentHybrid
	}

	overlap := domainKeywordOverlap(tokens)
	switch {
	case overlap >= qu.cfg.TitleOverlap:
		return domain.IntentTitle
	case overlap >= qu.cfg.FragmentOverlap:
		return domain.IntentHybrid
	default:
		return domain.IntentFragment
	}
}

// route derives the routing configuration from the classification. Defaults
// are overridden per category rather than computed from an open-ended map.
func (qu *QueryUnderstanding) route(intent domain.QueryIntent, category domain.QueryCategory) domain.RoutingConfig {
	rc := domain.RoutingConfig{
		UseLexical:        true,
		UseVector:         true,
		UseGraph:          true,
		WeightLexical:     qu.cfg.WeightLexical,
		WeightVector:      qu.cfg.WeightVector,
		WeightGraph:       qu.cfg.WeightGraph,
		TargetGranularity: domain.GranularityFragment,
		TopKPerSource:     qu.cfg.TopKPerSource,
		PrimaryMethod:     domain.MethodBalanced,
	}

	switch category {
	case domain.CategoryTable:
		// Table lookups live on exact terms; graph adds nothing.
		rc.WeightLexical = 0.6
		rc.WeightVector = 0.4
		rc.WeightGraph = 0
		rc.UseGraph = false
	case domain.CategoryRelation:
		rc.WeightLexical = 0.25
		rc.WeightVector = 0.25
		rc.WeightGraph = 0.5
		rc.PrimaryMethod = domain.MethodGraphFirst
	case domain.CategoryComparison:
		rc.WeightLexical = 0.25
		rc.WeightVector = 0.45
		rc.WeightGraph = 0.3
	}

	// Title lookups retrieve sections directly; hybrid queries retrieve
	// fragments and promote sections in the aggregation stage.
	if intent == domain.IntentTitle {
		rc.TargetGranularity = domain.GranularitySection
	}

	return rc
}
