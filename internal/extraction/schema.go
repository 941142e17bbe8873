package extraction

import (
	"encoding/json"
	"fmt"
)

// SignalField 单个信号：值 + 逐字证据引文。
// 值为 "unknown"/空数组/false 时允许无证据，否则必须至少一条。
type SignalField struct {
	Value    interface{} `json:"value"`
	Evidence []string    `json:"evidence"`
}

type ProspectSentiment struct {
	Disposition string   `json:"disposition"` // positive / neutral / cautious / negative / unknown
	Summary     string   `json:"summary"`
	Evidence    []string `json:"evidence"`
}

type BudgetSignals struct {
	Discussed         SignalField       `json:"discussed"`
	Details           SignalField       `json:"details"`
	BudgetAlignment   string            `json:"budget_alignment"` // aligned / gap_small / gap_large / unknown
	ProspectSentiment ProspectSentiment `json:"prospect_sentiment"`
}

type AuthoritySignals struct {
	DecisionMakerIdentified SignalField       `json:"decision_maker_identified"`
	DecisionMakerName       SignalField       `json:"decision_maker_name"`
	BuyingProcess           SignalField       `json:"buying_process"`
	ChampionIdentified      SignalField       `json:"champion_identified"`
	ProspectSentiment       ProspectSentiment `json:"prospect_sentiment"`
}

type NeedSignals struct {
	PainPoints        SignalField       `json:"pain_points"`
	CurrentSolution   SignalField       `json:"current_solution"`
	UrgencyLevel      SignalField       `json:"urgency_level"`
	ProspectSentiment ProspectSentiment `json:"prospect_sentiment"`
}

type TimingSignals struct {
	Timeline          SignalField       `json:"timeline"`
	UpcomingEvents    SignalField       `json:"upcoming_events"`
	DemoScheduled     SignalField       `json:"demo_scheduled"`
	NextSteps         SignalField       `json:"next_steps"`
	ProspectSentiment ProspectSentiment `json:"prospect_sentiment"`
}

type AccountSignals struct {
	CompanyName         SignalField `json:"company_name"` // 证据可选，常来自标题元数据
	EmployeeCount       SignalField `json:"employee_count"`
	IdentityProvider    SignalField `json:"identity_provider"`
	ScimMentioned       SignalField `json:"scim_mentioned"`
	CompetitorsMentioned SignalField `json:"competitors_mentioned"`
}

type ParticipantTitle struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	RoleInDeal string `json:"role_in_deal"` // decision_maker / champion / evaluator / end_user / unknown
}

// ExtractedSignals 信号提取的结构化输出
type ExtractedSignals struct {
	Budget            BudgetSignals      `json:"budget"`
	Authority         AuthoritySignals   `json:"authority"`
	Need              NeedSignals        `json:"need"`
	Timing            TimingSignals      `json:"timing"`
	Account           AccountSignals     `json:"account"`
	ParticipantTitles []ParticipantTitle `json:"participant_titles"`
	CallSummary       string             `json:"call_summary"`
}

var validSentiments = map[string]struct{}{
	"positive": {}, "neutral": {}, "cautious": {}, "negative": {}, "unknown": {},
}

var validAlignments = map[string]struct{}{
	"aligned": {}, "gap_small": {}, "gap_large": {}, "unknown": {},
}

// ParseSignals 解析并校验补全输出；证据缺失属于校验失败而非静默接受
func ParseSignals(raw string) (*ExtractedSignals, error) {
	var signals ExtractedSignals
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		return nil, fmt.Errorf("malformed signals json: %w", err)
	}
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	return &signals, nil
}

// Validate 显式校验结果，不靠深层 panic/隐式异常
func (s *ExtractedSignals) Validate() error {
	fields := []struct {
		path  string
		field SignalField
	}{
		{"budget.discussed", s.Budget.Discussed},
		{"budget.details", s.Budget.Details},
		{"authority.decision_maker_identified", s.Authority.DecisionMakerIdentified},
		{"authority.decision_maker_name", s.Authority.DecisionMakerName},
		{"authority.buying_process", s.Authority.BuyingProcess},
		{"authority.champion_identified", s.Authority.ChampionIdentified},
		{"need.pain_points", s.Need.PainPoints},
		{"need.current_solution", s.Need.CurrentSolution},
		{"need.urgency_level", s.Need.UrgencyLevel},
		{"timing.timeline", s.Timing.Timeline},
		{"timing.upcoming_events", s.Timing.UpcomingEvents},
		{"timing.demo_scheduled", s.Timing.DemoScheduled},
		{"timing.next_steps", s.Timing.NextSteps},
		{"account.employee_count", s.Account.EmployeeCount},
		{"account.identity_provider", s.Account.IdentityProvider},
		{"account.scim_mentioned", s.Account.ScimMentioned},
		{"account.competitors_mentioned", s.Account.CompetitorsMentioned},
	}

	for _, f := range fields {
		if err := requireEvidence(f.path, f.field); err != nil {
			return err
		}
	}

	for _, sentiment := range []struct {
		path string
		s    ProspectSentiment
	}{
		{"budget", s.Budget.ProspectSentiment},
		{"authority", s.Authority.ProspectSentiment},
		{"need", s.Need.ProspectSentiment},
		{"timing", s.Timing.ProspectSentiment},
	} {
		if _, ok := validSentiments[sentiment.s.Disposition]; !ok {
			return fmt.Errorf("%s.prospect_sentiment: invalid disposition %q", sentiment.path, sentiment.s.Disposition)
		}
	}

	if _, ok := validAlignments[s.Budget.BudgetAlignment]; !ok {
		return fmt.Errorf("budget.budget_alignment: invalid value %q", s.Budget.BudgetAlignment)
	}

	return nil
}

func requireEvidence(path string, f SignalField) error {
	if isUnknownValue(f.Value) {
		return nil
	}
	if len(f.Evidence) == 0 {
		return fmt.Errorf("%s: populated value must include at least one evidence quote", path)
	}
	return nil
}

// isUnknownValue "unknown"、空字符串、空数组、false 视为未知
func isUnknownValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == "unknown" || val == ""
	case bool:
		return !val
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}
