package extraction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalSignals() *ExtractedSignals {
	unknown := SignalField{Value: "unknown"}
	sentiment := ProspectSentiment{Disposition: "unknown"}

	return &ExtractedSignals{
		Budget: BudgetSignals{
			Discussed: unknown, Details: unknown,
			BudgetAlignment: "unknown", ProspectSentiment: sentiment,
		},
		Authority: AuthoritySignals{
			DecisionMakerIdentified: unknown, DecisionMakerName: unknown,
			BuyingProcess: unknown, ChampionIdentified: unknown,
			ProspectSentiment: sentiment,
		},
		Need: NeedSignals{
			PainPoints: unknown, CurrentSolution: unknown, UrgencyLevel: unknown,
			ProspectSentiment: sentiment,
		},
		Timing: TimingSignals{
			Timeline: unknown, UpcomingEvents: unknown, DemoScheduled: unknown,
			NextSteps: unknown, ProspectSentiment: sentiment,
		},
		Account: AccountSignals{
			CompanyName: unknown, EmployeeCount: unknown, IdentityProvider: unknown,
			ScimMentioned: unknown, CompetitorsMentioned: unknown,
		},
		CallSummary: "short call",
	}
}

func TestValidate_AllUnknownPasses(t *testing.T) {
	assert.NoError(t, minimalSignals().Validate())
}

func TestValidate_PopulatedWithoutEvidenceFails(t *testing.T) {
	s := minimalSignals()
	s.Need.PainPoints = SignalField{Value: "manual provisioning is slow"}

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need.pain_points")
}

func TestValidate_PopulatedWithEvidencePasses(t *testing.T) {
	s := minimalSignals()
	s.Need.PainPoints = SignalField{
		Value:    "manual provisioning is slow",
		Evidence: []string{"onboarding takes us three weeks per customer"},
	}
	assert.NoError(t, s.Validate())
}

func TestValidate_FalseAndEmptyArrayNeedNoEvidence(t *testing.T) {
	s := minimalSignals()
	s.Timing.DemoScheduled = SignalField{Value: false}
	s.Account.CompetitorsMentioned = SignalField{Value: []string{}}
	assert.NoError(t, s.Validate())
}

func TestValidate_CompanyNameEvidenceOptional(t *testing.T) {
	// 公司名常来自标题元数据，允许无证据
	s := minimalSignals()
	s.Account.CompanyName = SignalField{Value: "Lattice"}
	assert.NoError(t, s.Validate())
}

func TestValidate_BadEnums(t *testing.T) {
	s := minimalSignals()
	s.Budget.BudgetAlignment = "sideways"
	assert.Error(t, s.Validate())

	s = minimalSignals()
	s.Need.ProspectSentiment.Disposition = "ecstatic"
	assert.Error(t, s.Validate())
}

func TestParseSignals_RoundTrip(t *testing.T) {
	s := minimalSignals()
	s.Account.EmployeeCount = SignalField{
		Value:    float64(3000),
		Evidence: []string{"we are about three thousand people"},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	parsed, err := ParseSignals(string(data))
	require.NoError(t, err)
	assert.Equal(t, "short call", parsed.CallSummary)
}

func TestParseSignals_MalformedJSON(t *testing.T) {
	_, err := ParseSignals("{not json")
	assert.Error(t, err)
}
