package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/testutil"
)

func TestFindOrCreateDedup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	created, err := repo.FindOrCreate(&model.Call{
		ExternalRecordingID: "rec_1",
		Title:               "Console/Lattice (Legal)",
		ShareURL:            "https://fathom.video/share/abc",
	})
	require.NoError(t, err)

	// 相同录音 ID:返回原行
	same, err := repo.FindOrCreate(&model.Call{
		ExternalRecordingID: "rec_1",
		Title:               "different title",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, same.ID)
	assert.Equal(t, "Console/Lattice (Legal)", same.Title)

	// 录音 ID 不同但分享链接相同:仍视为同一通话
	byURL, err := repo.FindOrCreate(&model.Call{
		ExternalRecordingID: "rec_2",
		ShareURL:            "https://fathom.video/share/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, byURL.ID)

	// 都不同:新行
	other, err := repo.FindOrCreate(&model.Call{
		ExternalRecordingID: "rec_3",
		ShareURL:            "https://fathom.video/share/xyz",
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestReplaceParticipantsAndUtterances(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	call := testutil.TestCall(t, db)
	testutil.TestParticipant(t, db, call.ID)
	testutil.TestUtterance(t, db, call.ID, 0)
	testutil.TestUtterance(t, db, call.ID, 1)

	// 重新归一化:整体替换
	require.NoError(t, repo.ReplaceParticipants(call.ID, []*model.Participant{
		{Name: "Alex Rivera", Role: model.RoleInternal},
		{Name: "Dana Wu", Role: model.RoleExternal},
	}))
	require.NoError(t, repo.ReplaceUtterances(call.ID, []*model.Utterance{
		{Idx: 0, SpeakerLabelRaw: "Alex Rivera", TextNormalized: "hello"},
	}))

	participants, err := repo.GetParticipants(call.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)

	utterances, err := repo.GetUtterances(call.ID)
	require.NoError(t, err)
	require.Len(t, utterances, 1)
	assert.Equal(t, "hello", utterances[0].TextNormalized)
}

func TestGetUtterancesOrdered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	call := testutil.TestCall(t, db)
	testutil.TestUtterance(t, db, call.ID, 2)
	testutil.TestUtterance(t, db, call.ID, 0)
	testutil.TestUtterance(t, db, call.ID, 1)

	utterances, err := repo.GetUtterances(call.ID)
	require.NoError(t, err)
	require.Len(t, utterances, 3)
	for i, u := range utterances {
		assert.Equal(t, i, u.Idx)
	}
}

func TestFindCallIDsByParticipantEmails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	call := testutil.TestCall(t, db)
	email := "dana@lattice.example"
	testutil.TestParticipant(t, db, call.ID, func(p *model.Participant) {
		p.Email = &email
		p.Role = model.RoleExternal
	})
	// 内部参会人不参与匹配
	internalEmail := "alex@console.example"
	testutil.TestParticipant(t, db, call.ID, func(p *model.Participant) {
		p.Name = "Alex Rivera"
		p.Email = &internalEmail
		p.Role = model.RoleInternal
	})

	ids, err := repo.FindCallIDsByParticipantEmails([]string{"dana@lattice.example"})
	require.NoError(t, err)
	assert.Equal(t, []int64{call.ID}, ids)

	ids, err = repo.FindCallIDsByParticipantEmails([]string{"alex@console.example"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.FindCallIDsByParticipantEmails(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFindCallIDsByParticipantEmailsBatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	call := testutil.TestCall(t, db)
	matched := "dana@lattice.example"
	testutil.TestParticipant(t, db, call.ID, func(p *model.Participant) {
		p.Email = &matched
	})

	// 远超单批上限的输入,命中邮箱排在最后一批
	emails := make([]string, 0, 121)
	for i := 0; i < 120; i++ {
		emails = append(emails, fmt.Sprintf("nobody+%d@example.com", i))
	}
	emails = append(emails, matched)

	ids, err := repo.FindCallIDsByParticipantEmails(emails)
	require.NoError(t, err)
	assert.Equal(t, []int64{call.ID}, ids)
}

func TestGetParticipantsByRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewCallRepository(db)

	call := testutil.TestCall(t, db)
	testutil.TestParticipant(t, db, call.ID)
	testutil.TestParticipant(t, db, call.ID, func(p *model.Participant) {
		p.Name = "Alex Rivera"
		p.Role = model.RoleInternal
	})

	external, err := repo.GetParticipantsByRole(call.ID, model.RoleExternal)
	require.NoError(t, err)
	require.Len(t, external, 1)
	assert.Equal(t, "Dana Wu", external[0].Name)
}
