package formatting

import (
	"fmt"
	"strings"

	"github.com/console-hq/calleval_go_server/internal/evaluation"
	"github.com/console-hq/calleval_go_server/internal/extraction"
)

// DigestContext 摘要抬头信息
type DigestContext struct {
	AEName       string
	AccountName  string
	MeetingTitle string
}

// Digest 回调和面板共用的摘要载荷
type Digest struct {
	AEName           string `json:"ae_name,omitempty"`
	AccountName      string `json:"account_name,omitempty"`
	MeetingTitle     string `json:"meeting_title"`
	OverallStatus    string `json:"overall_status"`
	StageProbability int    `json:"stage_1_probability"`
	Text             string `json:"text"`
}

// scorePips 1-5 分渲染成 ●●●○○
func scorePips(score int) string {
	if score < 0 {
		score = 0
	}
	if score > 5 {
		score = 5
	}
	return strings.Repeat("●", score) + strings.Repeat("○", 5-score)
}

var sentimentLabels = map[string]string{
	"positive": "Positive",
	"neutral":  "Neutral",
	"cautious": "Cautious",
	"negative": "Negative",
	"unknown":  "Unknown",
}

func sentimentLabel(disposition string) string {
	if label, ok := sentimentLabels[disposition]; ok {
		return label
	}
	return disposition
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// GrowthTeamDigest 面向增长团队的完整评估摘要
func GrowthTeamDigest(eval *evaluation.EvaluationResult, signals *extraction.ExtractedSignals, ctx DigestContext) *Digest {
	ae := orDefault(ctx.AEName, "Unknown AE")
	account := orDefault(ctx.AccountName, "Unknown Account")
	b := eval.BANTScores

	var participants []string
	for _, p := range signals.ParticipantTitles {
		participants = append(participants, fmt.Sprintf("• %s — %s", p.Name, p.Title))
	}
	participantLines := strings.Join(participants, "\n")
	if participantLines == "" {
		participantLines = "_(none detected)_"
	}

	lines := []string{
		fmt.Sprintf("*%s* just met with *%s*", ae, account),
		"",
		"*Participants*",
		participantLines,
		"",
		"*Call Notes*",
		eval.CallNotes,
		"",
		fmt.Sprintf("*Budget* %s (%d/5)", scorePips(b.Budget.Score), b.Budget.Score),
		b.Budget.Rationale,
		fmt.Sprintf("Alignment: %s · Prospect: %s", signals.Budget.BudgetAlignment, sentimentLabel(signals.Budget.ProspectSentiment.Disposition)),
		"",
		fmt.Sprintf("*Authority* %s (%d/5)", scorePips(b.Authority.Score), b.Authority.Score),
		b.Authority.Rationale,
		fmt.Sprintf("Prospect: %s", sentimentLabel(signals.Authority.ProspectSentiment.Disposition)),
		"",
		fmt.Sprintf("*Need* %s (%d/5)", scorePips(b.Need.Score), b.Need.Score),
		b.Need.Rationale,
		fmt.Sprintf("Prospect: %s", sentimentLabel(signals.Need.ProspectSentiment.Disposition)),
		"",
		fmt.Sprintf("*Timing* %s (%d/5)", scorePips(b.Timing.Score), b.Timing.Score),
		b.Timing.Rationale,
		fmt.Sprintf("Prospect: %s", sentimentLabel(signals.Timing.ProspectSentiment.Disposition)),
		"",
		fmt.Sprintf("*Stage 1 Probability:* %d%% — %s", eval.StageProbability, eval.OverallStatus),
		eval.StageReasoning,
	}

	return &Digest{
		AEName:           ctx.AEName,
		AccountName:      ctx.AccountName,
		MeetingTitle:     ctx.MeetingTitle,
		OverallStatus:    eval.OverallStatus,
		StageProbability: eval.StageProbability,
		Text:             strings.Join(lines, "\n"),
	}
}

// AEDigest 面向 AE 本人的行动项摘要
func AEDigest(eval *evaluation.EvaluationResult, ctx DigestContext) *Digest {
	account := orDefault(ctx.AccountName, "Unknown Account")
	b := eval.BANTScores

	nextSteps := bulletList(eval.NextSteps)
	coaching := bulletList(eval.CoachingNotes)

	lines := []string{
		fmt.Sprintf("*Your call with %s* — %s (%d%%)", account, eval.OverallStatus, eval.StageProbability),
		"",
		"*BANT Summary*",
		fmt.Sprintf("Budget: %s — %s", scorePips(b.Budget.Score), b.Budget.Rationale),
		fmt.Sprintf("Authority: %s — %s", scorePips(b.Authority.Score), b.Authority.Rationale),
		fmt.Sprintf("Need: %s — %s", scorePips(b.Need.Score), b.Need.Rationale),
		fmt.Sprintf("Timing: %s — %s", scorePips(b.Timing.Score), b.Timing.Rationale),
		"",
		"*Next Steps*",
		nextSteps,
		"",
		"*Coaching Notes*",
		coaching,
	}

	return &Digest{
		AEName:           ctx.AEName,
		AccountName:      ctx.AccountName,
		MeetingTitle:     ctx.MeetingTitle,
		OverallStatus:    eval.OverallStatus,
		StageProbability: eval.StageProbability,
		Text:             strings.Join(lines, "\n"),
	}
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "_(none)_"
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("• ")
		sb.WriteString(item)
	}
	return sb.String()
}
