package usecase

import (
	"sort"
	"strings"
)

// canonicalSynonyms maps a canonical domain term to its aliases. Expansion is
// bidirectional: hitting any alias pulls in the canonical term and every
// other alias.
var canonicalSynonyms = map[string][]string{
	"hcp":     {"宿主细胞蛋白", "host cell protein", "宿主蛋白"},
	"内毒素":     {"endotoxin", "细菌内毒素", "lps"},
	"dna残留":   {"residual dna", "宿主dna", "host cell dna"},
	"纯化":      {"purification", "精制"},
	"发酵":      {"fermentation", "培养"},
	"层析":      {"chromatography", "色谱"},
	"检测":      {"assay", "test", "测定", "检验"},
	"工艺验证":    {"process validation", "验证"},
	"稳定性":     {"stability", "稳定性考察"},
	"批号":      {"lot number", "batch number", "lot"},
	"效价":      {"potency", "titer", "滴度"},
	"纯度":      {"purity"},
	"放行":      {"release", "批放行"},
	"质量标准":    {"specification", "质标", "标准"},
	"不合格":     {"oos", "out of specification", "超标"},
	"偏差":      {"deviation"},
	"变更":      {"change control", "变更控制"},
}

type synonymTable struct {
	expansions map[string][]string
}

func newSynonymTable() *synonymTable {
	expansions := make(map[string][]string, len(canonicalSynonyms)*3)
	for canonical, aliases := range canonicalSynonyms {
		group := append([]string{canonical}, aliases...)
		for _, member := range group {
			key := strings.ToLower(member)
			for _, other := range group {
				if !strings.EqualFold(other, member) {
					expansions[key] = append(expansions[key], other)
				}
			}
		}
	}
	return &synonymTable{expansions: expansions}
}

// Expand returns synonym expansions for every recognized term in the query,
// deduplicated and excluding terms already present.
func (st *synonymTable) Expand(query string, tokens []string) []string {
	lowered := strings.ToLower(query)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[strings.ToLower(t)] = struct{}{}
	}

	var out []string
	add := func(terms []string) {
		for _, term := range terms {
			key := strings.ToLower(term)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, term)
		}
	}

	for key, terms := range st.expansions {
		if strings.Contains(lowered, key) {
			add(terms)
		}
	}
	// Map iteration order is random; keep the expansion set deterministic.
	sort.Strings(out)
	return out
}
