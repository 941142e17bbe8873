package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/console-hq/calleval_go_server/internal/ingestion"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
)

// PromptVersion 提取 prompt 版本，随结果落库
const PromptVersion = "extractor_v1"

const systemPrompt = `You are a sales call analyst. You will be given the transcript of a recorded sales call.
Extract structured qualification signals and return them as a single JSON object with this shape:
{
  "budget": {"discussed": {"value": ..., "evidence": [...]}, "details": {...}, "budget_alignment": "aligned|gap_small|gap_large|unknown", "prospect_sentiment": {"disposition": "positive|neutral|cautious|negative|unknown", "summary": "...", "evidence": [...]}},
  "authority": {"decision_maker_identified": {...}, "decision_maker_name": {...}, "buying_process": {...}, "champion_identified": {...}, "prospect_sentiment": {...}},
  "need": {"pain_points": {...}, "current_solution": {...}, "urgency_level": {...}, "prospect_sentiment": {...}},
  "timing": {"timeline": {...}, "upcoming_events": {...}, "demo_scheduled": {...}, "next_steps": {...}, "prospect_sentiment": {...}},
  "account": {"company_name": {...}, "employee_count": {...}, "identity_provider": {...}, "scim_mentioned": {...}, "competitors_mentioned": {...}},
  "participant_titles": [{"name": "...", "title": "...", "role_in_deal": "decision_maker|champion|evaluator|end_user|unknown"}],
  "call_summary": "..."
}
Every populated field value MUST include at least one verbatim evidence quote from the transcript.
If the transcript does not support a field, use "unknown", an empty array, or false, with no evidence.
Do not infer or embellish. Return only the JSON object.`

// BuildTranscriptText 转写拼接："[说话人]: 文本" 按 idx 顺序
func BuildTranscriptText(utterances []ingestion.NormalizedUtterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		lines = append(lines, fmt.Sprintf("[%s]: %s", u.SpeakerLabelRaw, u.TextNormalized))
	}
	return strings.Join(lines, "\n")
}

// Extract 调补全服务提取信号并做 schema 校验
func Extract(ctx context.Context, client llm.Completer, utterances []ingestion.NormalizedUtterance, mctx ingestion.MeetingContext) (*ExtractedSignals, error) {
	userMessage := strings.Join([]string{
		"## MEETING CONTEXT",
		"Our company: " + mctx.OurCompany,
		"Prospect company: " + orUnknown(mctx.ProspectCompany),
		"Meeting title: " + mctx.MeetingTitle,
		"",
		"## TRANSCRIPT",
		BuildTranscriptText(utterances),
	}, "\n")

	content, err := client.Complete(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("extractor llm call failed: %w", err)
	}

	return ParseSignals(content)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
