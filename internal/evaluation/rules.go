package evaluation

import (
	"fmt"

	"github.com/console-hq/calleval_go_server/internal/ingestion"
)

const lowScoreThreshold = 2

// CrossCheck 用确定性规则复核模型给出的总体状态。
// 当所有有效维度都不高于阈值而模型仍未判为 Unqualified 时,
// 强制覆盖并返回不一致原因。企业客户首通不考察 budget 维度。
func CrossCheck(result *EvaluationResult, segment string) (applied bool, reason string) {
	dims := []struct {
		name  string
		score int
	}{
		{"authority", result.BANTScores.Authority.Score},
		{"need", result.BANTScores.Need.Score},
		{"timing", result.BANTScores.Timing.Score},
	}
	if segment != ingestion.SegmentEnterprise {
		dims = append(dims, struct {
			name  string
			score int
		}{"budget", result.BANTScores.Budget.Score})
	}

	for _, d := range dims {
		if d.score > lowScoreThreshold {
			return false, ""
		}
	}
	if result.OverallStatus == StatusUnqualified {
		return false, ""
	}

	reason = fmt.Sprintf("all scored dimensions at or below %d but status was %q; overridden to %q",
		lowScoreThreshold, result.OverallStatus, StatusUnqualified)
	result.OverallStatus = StatusUnqualified
	return true, reason
}
