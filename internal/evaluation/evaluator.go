package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/console-hq/calleval_go_server/internal/extraction"
	"github.com/console-hq/calleval_go_server/internal/ingestion"
	"github.com/console-hq/calleval_go_server/internal/pkg/llm"
)

// PromptVersion 评估提示词版本,随评估结果一同落库
const PromptVersion = "evaluator_v2"

const systemPrompt = `You are a sales call evaluator. You are given structured signals extracted from a sales call transcript, plus meeting context. Score the call on the BANT rubric and return ONLY a JSON object with this exact shape:

{
  "bant_scores": {
    "budget":    {"score": 1-5, "rationale": "..."},
    "authority": {"score": 1-5, "rationale": "..."},
    "need":      {"score": 1-5, "rationale": "..."},
    "timing":    {"score": 1-5, "rationale": "..."}
  },
  "stage_1_probability": 0-100,
  "stage_1_reasoning": "...",
  "overall_status": "Qualified" | "Needs Work" | "Unqualified",
  "call_notes": "...",
  "coaching_notes": ["..."],
  "next_steps": ["..."],
  "score": 0-100
}

Scoring rules:
- Score each dimension ONLY on the evidence in the extracted signals. A dimension with no signal gets a low score, never a guessed one.
- 1 = no evidence / negative signal, 3 = partial signal, 5 = explicit strong signal.
- "overall_status" must be consistent with the dimension scores.
- "coaching_notes" address the account executive, not the prospect.
- For enterprise-segment deals, budget is expected to be undiscovered on a first call; do not let a low budget score alone drag the overall status down.`

// Evaluate 基于已抽取信号对通话做资格评估
func Evaluate(ctx context.Context, client llm.Completer, signals *extraction.ExtractedSignals, mctx *ingestion.MeetingContext) (*EvaluationResult, error) {
	signalsJSON, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal signals: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## MEETING CONTEXT\n")
	fmt.Fprintf(&sb, "Our company: %s\n", mctx.OurCompany)
	fmt.Fprintf(&sb, "Prospect company: %s\n", orUnknown(mctx.ProspectCompany))
	fmt.Fprintf(&sb, "Account executive: %s\n", orUnknown(mctx.AEName))
	fmt.Fprintf(&sb, "Deal segment: %s\n", mctx.DealSegment)
	sb.WriteString("\n## EXTRACTED SIGNALS\n")
	sb.Write(signalsJSON)

	raw, err := client.Complete(ctx, systemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("evaluation completion: %w", err)
	}
	return ParseResult(raw)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
