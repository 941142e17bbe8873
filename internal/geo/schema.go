package geo

import (
	"encoding/json"
	"fmt"
)

// 短语类别
const (
	CategoryProblemDescriptions = "problem_descriptions"
	CategorySolutionSeeking     = "solution_seeking"
	CategoryPainLanguage        = "pain_language"
	CategoryFeatureMentions     = "feature_mentions"
	CategorySearchIntent        = "search_intent"
)

// Categories 按固定顺序列出全部短语类别
var Categories = []string{
	CategoryProblemDescriptions,
	CategorySolutionSeeking,
	CategoryPainLanguage,
	CategoryFeatureMentions,
	CategorySearchIntent,
}

var validCategories = map[string]struct{}{
	CategoryProblemDescriptions: {},
	CategorySolutionSeeking:     {},
	CategoryPainLanguage:        {},
	CategoryFeatureMentions:     {},
	CategorySearchIntent:        {},
}

// ExtractedPhrase 单条外部发言短语
type ExtractedPhrase struct {
	Phrase         string `json:"phrase"`
	VerbatimQuote  string `json:"verbatim_quote"`
	Speaker        string `json:"speaker"`
	ContextSummary string `json:"context_summary"`
}

// PhraseExtraction 一次通话的分类短语抽取结果
type PhraseExtraction struct {
	ProblemDescriptions []ExtractedPhrase `json:"problem_descriptions"`
	SolutionSeeking     []ExtractedPhrase `json:"solution_seeking"`
	PainLanguage        []ExtractedPhrase `json:"pain_language"`
	FeatureMentions     []ExtractedPhrase `json:"feature_mentions"`
	SearchIntent        []ExtractedPhrase `json:"search_intent"`
}

// ByCategory 按类别名返回对应短语列表
func (e *PhraseExtraction) ByCategory(category string) []ExtractedPhrase {
	switch category {
	case CategoryProblemDescriptions:
		return e.ProblemDescriptions
	case CategorySolutionSeeking:
		return e.SolutionSeeking
	case CategoryPainLanguage:
		return e.PainLanguage
	case CategoryFeatureMentions:
		return e.FeatureMentions
	case CategorySearchIntent:
		return e.SearchIntent
	}
	return nil
}

// Total 全部类别的短语条数
func (e *PhraseExtraction) Total() int {
	n := 0
	for _, c := range Categories {
		n += len(e.ByCategory(c))
	}
	return n
}

// IsEmpty 是否没有任何短语
func (e *PhraseExtraction) IsEmpty() bool {
	return e.Total() == 0
}

// ParsePhraseExtraction 解析模型返回的短语 JSON
func ParsePhraseExtraction(raw string) (*PhraseExtraction, error) {
	var pe PhraseExtraction
	if err := json.Unmarshal([]byte(raw), &pe); err != nil {
		return nil, fmt.Errorf("malformed phrase json: %w", err)
	}
	return &pe, nil
}
