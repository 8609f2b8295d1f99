package usecase

import (
	"regexp"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// Classification and extraction are driven by ordered rule tables so the
// behavior can be inspected and tested independently of the pipeline code.
// Earlier rules win.

type categoryRule struct {
	category domain.QueryCategory
	pattern  *regexp.Regexp
}

var categoryRules = []categoryRule{
	{domain.CategoryTable, regexp.MustCompile(`(?i)\b(table|spec(ification)?s?|limits?|acceptance criteria)\b|表格|指标|限度|标准值`)},
	{domain.CategoryRelation, regexp.MustCompile(`(?i)\b(relation(ship)?|related to|between .+ and|depends on|linked)\b|关系|关联|之间`)},
	{domain.CategoryComparison, regexp.MustCompile(`(?i)\b(compare|comparison|versus|vs\.?|difference between)\b|比较|对比|区别`)},
	{domain.CategoryProcess, regexp.MustCompile(`(?i)\b(how (to|do|is)|procedure|process|steps?|workflow|protocol)\b|流程|步骤|工艺|操作`)},
	{domain.CategoryDefinition, regexp.MustCompile(`(?i)\b(what is|what are|define|definition|meaning of|explain)\b|是什么|什么是|定义|含义`)},
}

func classifyCategory(query string) domain.QueryCategory {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(query) {
			return rule.category
		}
	}
	return domain.CategoryGeneric
}

// definitionalKeywords mark short title-style lookups ("HCP定义", "what is X").
var definitionalKeywords = regexp.MustCompile(`(?i)\b(what|define|definition|overview|introduction|summary)\b|是什么|什么是|定义|概述|简介`)

type entityRule struct {
	entityType string
	pattern    *regexp.Regexp
}

// entityRules are evaluated in priority order; multiple rules may fire on
// one query but each value is kept once per type.
var entityRules = []entityRule{
	{"product_code", regexp.MustCompile(`\b[A-Z]{2,5}-\d{2,4}[A-Z]?\b`)},
	{"batch_number", regexp.MustCompile(`(?i)\b(?:lot|batch)[-_ ]?\w{4,12}\b|批号\s*[:：]?\s*\w{4,12}`)},
	{"date", regexp.MustCompile(`\b\d{4}[-/年]\d{1,2}[-/月]?\d{0,2}日?\b`)},
	{"indicator", regexp.MustCompile(`(?i)\bHCP\b|\bDNA\b|\bpH\b|\bHPLC\b|\bSEC\b|\bCE-SDS\b|宿主细胞蛋白|内毒素|残留|纯度|浓度|效价|活性`)},
	{"department", regexp.MustCompile(`(?i)\bQ[AC]\b|质量部|生产部|研发部|工艺部|检测中心`)},
	{"domain_term", regexp.MustCompile(`(?i)\b(purification|fermentation|chromatography|filtration|elution|dialysis)\b|纯化|发酵|层析|过滤|洗脱|透析|检测|验证`)},
}

func extractEntities(query string) []domain.Entity {
	var out []domain.Entity
	for _, rule := range entityRules {
		matches := rule.pattern.FindAllString(query, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, domain.Entity{Type: rule.entityType, Value: m})
		}
	}
	if len(out) == 0 {
		// Nothing matched: the whole query is the entity.
		out = append(out, domain.Entity{Type: "generic", Value: query})
	}
	return out
}

// domainKeywords anchor the lexical-similarity heuristic that separates
// title-style from fragment-style queries.
var domainKeywords = map[string]struct{}{
	"hcp": {}, "dna": {}, "hplc": {}, "sec": {}, "ph": {},
	"纯化": {}, "发酵": {}, "层析": {}, "检测": {}, "内毒素": {}, "残留": {},
	"工艺": {}, "验证": {}, "放行": {}, "稳定性": {}, "purification": {},
	"fermentation": {}, "chromatography": {}, "endotoxin": {}, "assay": {},
	"validation": {}, "stability": {}, "release": {},
}

func domainKeywordOverlap(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if _, ok := domainKeywords[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
