package domain

type QueryIntent string

const (
	IntentTitle    QueryIntent = "title"
	IntentFragment QueryIntent = "fragment"
	IntentHybrid   QueryIntent = "hybrid"
)

type QueryCategory string

const (
	CategoryDefinition QueryCategory = "definition"
	CategoryProcess    QueryCategory = "process"
	CategoryComparison QueryCategory = "comparison"
	CategoryTable      QueryCategory = "table"
	CategoryRelation   QueryCategory = "relation"
	CategoryGeneric    QueryCategory = "generic"
)

type PrimaryMethod string

const (
	MethodBalanced   PrimaryMethod = "balanced"
	MethodGraphFirst PrimaryMethod = "graph_first"
)

// RoutingConfig is the per-query retrieval policy emitted by query
// understanding. It is derived once and immutable for the query. Weights are
// each in [0,1]; their sum may be below 1.
type RoutingConfig struct {
	UseLexical bool `json:"use_lexical"`
	UseVector  bool `json:"use_vector"`
	UseGraph   bool `json:"use_graph"`

	WeightLexical float64 `json:"weight_lexical"`
	WeightVector  float64 `json:"weight_vector"`
	WeightGraph   float64 `json:"weight_graph"`

	TargetGranularity Granularity   `json:"target_granularity"`
	TopKPerSource     int           `json:"top_k_per_source"`
	PrimaryMethod     PrimaryMethod `json:"primary_method"`
}

func (rc RoutingConfig) Weight(s Source) float64 {
	switch s {
	case SourceLexical:
		return rc.WeightLexical
	case SourceVector:
		return rc.WeightVector
	case SourceGraph:
		return rc.WeightGraph
	default:
		return 0
	}
}

// Entity is one extracted query entity, typed by the rule family that
// matched it.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UnderstoodQuery is the output of the query-understanding stage.
type UnderstoodQuery struct {
	Raw        string        `json:"raw"`
	Tokens     []string      `json:"tokens"`
	Intent     QueryIntent   `json:"intent"`
	Category   QueryCategory `json:"category"`
	Entities   []Entity      `json:"entities"`
	Expansions []string      `json:"expansions"`
	Routing    RoutingConfig `json:"routing"`
}

// EntityNames returns the distinct entity values in extraction order.
func (uq UnderstoodQuery) EntityNames() []string {
	seen := make(map[string]struct{}, len(uq.Entities))
	out := make([]string, 0, len(uq.Entities))
	for _, e := range uq.Entities {
		if _, ok := seen[e.Value]; ok {
			continue
		}
		seen[e.Value] = struct{}{}
		out = append(out, e.Value)
	}
	return out
}
