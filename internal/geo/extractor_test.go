package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-hq/calleval_go_server/internal/model"
)

type stubCompleter struct {
	response string
	called   bool
	lastUser string
}

func (s *stubCompleter) Complete(_ context.Context, _ string, userMessage string) (string, error) {
	s.called = true
	s.lastUser = userMessage
	return s.response, nil
}

func TestExtractPhrasesSkipsModelWithoutProspectSpeech(t *testing.T) {
	stub := &stubCompleter{}
	utterances := []model.Utterance{
		{SpeakerLabelRaw: "Alex Rivera", TextNormalized: "thanks for joining"},
	}

	pe, err := ExtractPhrases(context.Background(), stub, utterances, map[string]struct{}{})
	require.NoError(t, err)
	assert.True(t, pe.IsEmpty())
	assert.False(t, stub.called)
}

func TestExtractPhrasesOnlySendsProspectLines(t *testing.T) {
	stub := &stubCompleter{response: `{"pain_language":[{"phrase":"slow redlines","verbatim_quote":"our redlines are slow","speaker":"Dana","context_summary":"c"}]}`}
	utterances := []model.Utterance{
		{SpeakerLabelRaw: "Alex Rivera", TextNormalized: "how is contract review going"},
		{SpeakerLabelRaw: "Dana Wu", TextNormalized: "our redlines are slow"},
	}
	external := map[string]struct{}{"Dana Wu": {}}

	pe, err := ExtractPhrases(context.Background(), stub, utterances, external)
	require.NoError(t, err)
	require.Len(t, pe.PainLanguage, 1)
	assert.Contains(t, stub.lastUser, "our redlines are slow")
	assert.NotContains(t, stub.lastUser, "how is contract review going")
}
