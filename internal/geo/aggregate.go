package geo

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/console-hq/calleval_go_server/internal/model"
)

const maxExampleContexts = 5

// WeekWindow 返回 at 所在自然周的起点(本地周一零点)和终点
func WeekWindow(at time.Time) (start, end time.Time) {
	weekday := int(at.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日视为第 7 天
	}
	y, m, d := at.AddDate(0, 0, -(weekday - 1)).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, at.Location())
	return start, start.AddDate(0, 0, 7)
}

// NormalizePhraseKey 短语归一化:小写、去首尾空白、压缩内部空白
func NormalizePhraseKey(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(phrase))), " ")
}

type phraseAccumulator struct {
	phrase    string // 归一化后的展示短语
	category  string
	frequency int
	callIDs   map[int64]struct{}
	contexts  []string
	firstSeen time.Time
	lastSeen  time.Time
}

// Aggregate 把一周内的通话级短语抽取汇总成按 (类别, 归一化短语) 的统计行,
// 并叠加上一轮成功周度分析的累计数。firstSeenAt 沿用历史最早值。
func Aggregate(runID int64, extractions []model.CallPhraseExtraction, prior []model.PhraseStatistic) ([]model.PhraseStatistic, error) {
	acc := map[string]*phraseAccumulator{}

	for _, ex := range extractions {
		var pe PhraseExtraction
		if err := json.Unmarshal([]byte(ex.PhrasesJSON), &pe); err != nil {
			return nil, err
		}
		for _, category := range Categories {
			for _, p := range pe.ByCategory(category) {
				normalized := NormalizePhraseKey(p.Phrase)
				if normalized == "" {
					continue
				}
				key := category + "::" + normalized
				a, ok := acc[key]
				if !ok {
					a = &phraseAccumulator{
						phrase:    normalized,
						category:  category,
						callIDs:   map[int64]struct{}{},
						firstSeen: ex.CreatedAt,
						lastSeen:  ex.CreatedAt,
					}
					acc[key] = a
				}
				a.frequency++
				a.callIDs[ex.CallID] = struct{}{}
				if len(a.contexts) < maxExampleContexts && p.ContextSummary != "" {
					a.contexts = append(a.contexts, p.ContextSummary)
				}
				if ex.CreatedAt.Before(a.firstSeen) {
					a.firstSeen = ex.CreatedAt
				}
				if ex.CreatedAt.After(a.lastSeen) {
					a.lastSeen = ex.CreatedAt
				}
			}
		}
	}

	priorByKey := make(map[string]model.PhraseStatistic, len(prior))
	for _, p := range prior {
		priorByKey[p.Category+"::"+NormalizePhraseKey(p.Phrase)] = p
	}

	stats := make([]model.PhraseStatistic, 0, len(acc))
	for key, a := range acc {
		stat := model.PhraseStatistic{
			RunID:               runID,
			Phrase:              a.phrase,
			Category:            a.category,
			Frequency:           a.frequency,
			CallCount:           len(a.callIDs),
			CumulativeFrequency: a.frequency,
			CumulativeCallCount: len(a.callIDs),
			FirstSeenAt:         a.firstSeen,
			LastSeenAt:          a.lastSeen,
		}
		if p, ok := priorByKey[key]; ok {
			stat.CumulativeFrequency = p.CumulativeFrequency + a.frequency
			stat.CumulativeCallCount = p.CumulativeCallCount + len(a.callIDs)
			stat.FirstSeenAt = p.FirstSeenAt
		}
		if len(a.contexts) > 0 {
			encoded, err := json.Marshal(a.contexts)
			if err != nil {
				return nil, err
			}
			stat.ExampleContexts = string(encoded)
		}
		stats = append(stats, stat)
	}

	// 本周没出现但历史有累计的短语原样结转,保证累计序列不中断
	for key, p := range priorByKey {
		if _, ok := acc[key]; ok {
			continue
		}
		stats = append(stats, model.PhraseStatistic{
			RunID:               runID,
			Phrase:              NormalizePhraseKey(p.Phrase),
			Category:            p.Category,
			Frequency:           0,
			CallCount:           0,
			CumulativeFrequency: p.CumulativeFrequency,
			CumulativeCallCount: p.CumulativeCallCount,
			ExampleContexts:     p.ExampleContexts,
			FirstSeenAt:         p.FirstSeenAt,
			LastSeenAt:          p.LastSeenAt,
		})
	}

	return stats, nil
}
