package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
)

// ExtractorPromptVersion 短语抽取提示词版本
const ExtractorPromptVersion = "geo_extractor_v1"

const extractorPrompt = `You analyze sales call transcripts to mine the exact language prospects use when describing their problems and searching for solutions. You are given ONLY the prospect side of the conversation. Return ONLY a JSON object with this exact shape:

{
  "problem_descriptions": [{"phrase": "...", "verbatim_quote": "...", "speaker": "...", "context_summary": "..."}],
  "solution_seeking":     [...],
  "pain_language":        [...],
  "feature_mentions":     [...],
  "search_intent":        [...]
}

Rules:
- "phrase" is a short, reusable fragment (2-8 words) a prospect might also type into a search engine.
- "verbatim_quote" must appear word-for-word in the transcript.
- Only include phrases actually spoken by the prospect. Never invent or paraphrase quotes.
- Empty arrays are fine when a category has no matches.`

// ExtractPhrases 仅基于外部发言抽取分类短语。
// 无外部发言时直接返回空结果,不调用模型。
func ExtractPhrases(ctx context.Context, client llm.Completer, utterances []model.Utterance, externalLabels map[string]struct{}) (*PhraseExtraction, error) {
	var sb strings.Builder
	for _, u := range utterances {
		if _, ok := externalLabels[u.SpeakerLabelRaw]; !ok {
			continue
		}
		fmt.Fprintf(&sb, "[%s]: %s\n", u.SpeakerLabelRaw, u.TextNormalized)
	}
	if sb.Len() == 0 {
		return &PhraseExtraction{}, nil
	}

	raw, err := client.Complete(ctx, extractorPrompt, "## PROSPECT TRANSCRIPT\n"+sb.String())
	if err != nil {
		return nil, fmt.Errorf("phrase completion: %w", err)
	}
	return ParsePhraseExtraction(raw)
}
