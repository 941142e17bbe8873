package evaluation

import (
	"encoding/json"
	"fmt"
)

// 评估总体状态
const (
	StatusQualified   = "Qualified"
	StatusNeedsWork   = "Needs Work"
	StatusUnqualified = "Unqualified"
)

// RubricVersion 评分口径版本
const RubricVersion = "bant_v2"

type DimensionScore struct {
	Score     int    `json:"score"` // 1-5
	Rationale string `json:"rationale"`
}

type BANTScores struct {
	Budget    DimensionScore `json:"budget"`
	Authority DimensionScore `json:"authority"`
	Need      DimensionScore `json:"need"`
	Timing    DimensionScore `json:"timing"`
}

// EvaluationResult 资格评估的结构化输出
type EvaluationResult struct {
	BANTScores        BANTScores `json:"bant_scores"`
	StageProbability  int        `json:"stage_1_probability"` // 0-100
	StageReasoning    string     `json:"stage_1_reasoning"`
	OverallStatus     string     `json:"overall_status"`
	CallNotes         string     `json:"call_notes"`
	CoachingNotes     []string   `json:"coaching_notes"`
	NextSteps         []string   `json:"next_steps"`
	Score             int        `json:"score"` // 0-100
}

var validStatuses = map[string]struct{}{
	StatusQualified:   {},
	StatusNeedsWork:   {},
	StatusUnqualified: {},
}

// ParseResult 解析并校验评估输出
func ParseResult(raw string) (*EvaluationResult, error) {
	var result EvaluationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("malformed evaluation json: %w", err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *EvaluationResult) Validate() error {
	for _, d := range []struct {
		name  string
		score int
	}{
		{"budget", r.BANTScores.Budget.Score},
		{"authority", r.BANTScores.Authority.Score},
		{"need", r.BANTScores.Need.Score},
		{"timing", r.BANTScores.Timing.Score},
	} {
		if d.score < 1 || d.score > 5 {
			return fmt.Errorf("bant_scores.%s: score %d out of range 1-5", d.name, d.score)
		}
	}

	if r.StageProbability < 0 || r.StageProbability > 100 {
		return fmt.Errorf("stage_1_probability %d out of range 0-100", r.StageProbability)
	}
	if r.Score < 0 || r.Score > 100 {
		return fmt.Errorf("score %d out of range 0-100", r.Score)
	}
	if _, ok := validStatuses[r.OverallStatus]; !ok {
		return fmt.Errorf("invalid overall_status %q", r.OverallStatus)
	}
	return nil
}
