package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/testutil"
)

func TestGeoRunLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	run, err := repo.CreateRun(model.GeoRunTypeDaily, `{"backfill":false}`)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	require.NoError(t, repo.MarkRunSucceeded(run.ID, 12))

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusSucceeded, runs[0].Status)
	assert.Equal(t, 12, runs[0].CallsProcessed)
}

func TestLatestSucceededWeeklyRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	_, err := repo.LatestSucceededWeeklyRun(0)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := repo.CreateRun(model.GeoRunTypeWeekly, "{}")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunSucceeded(first.ID, 3))
	db.Model(first).Update("created_at", time.Now().Add(-time.Hour))

	// 失败的运行不参与
	failed, err := repo.CreateRun(model.GeoRunTypeWeekly, "{}")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunFailed(failed.ID, "boom"))

	// 进行中的当前运行要排除自身
	current, err := repo.CreateRun(model.GeoRunTypeWeekly, "{}")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunSucceeded(current.ID, 5))

	got, err := repo.LatestSucceededWeeklyRun(current.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestFilterUnprocessedCalls(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	processed := testutil.TestCall(t, db)
	fresh := testutil.TestCall(t, db)
	testutil.TestExtraction(t, db, processed.ID, 1, "{}")

	remaining, err := repo.FilterUnprocessedCalls([]int64{processed.ID, fresh.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{fresh.ID}, remaining)

	remaining, err = repo.FilterUnprocessedCalls(nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestFilterUnprocessedCallsLargeBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	// 超过单批 50 的 ID 列表也能正确过滤
	var ids []int64
	for i := 0; i < 120; i++ {
		call := testutil.TestCall(t, db)
		ids = append(ids, call.ID)
		if i%2 == 0 {
			testutil.TestExtraction(t, db, call.ID, 1, "{}")
		}
	}

	remaining, err := repo.FilterUnprocessedCalls(ids)
	require.NoError(t, err)
	assert.Len(t, remaining, 60)
}

func TestExtractionsSince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	call := testutil.TestCall(t, db)
	old := testutil.TestExtraction(t, db, call.ID, 1, "{}")
	db.Model(old).Update("created_at", time.Now().Add(-14*24*time.Hour))

	recent := testutil.TestCall(t, db)
	testutil.TestExtraction(t, db, recent.ID, 1, "{}")

	exts, err := repo.ExtractionsSince(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, recent.ID, exts[0].CallID)
}

func TestInsertAndQueryStatistics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewGeoRepository(db)

	stats := []*model.PhraseStatistic{
		{RunID: 1, Phrase: "slow redlines", Category: "pain_language", CumulativeFrequency: 5},
		{RunID: 1, Phrase: "contract bottleneck", Category: "pain_language", CumulativeFrequency: 9},
		{RunID: 1, Phrase: "clause library", Category: "feature_mentions", CumulativeFrequency: 2},
		{RunID: 2, Phrase: "other run", Category: "pain_language", CumulativeFrequency: 100},
	}
	require.NoError(t, repo.InsertStatistics(stats))

	got, err := repo.QueryStatistics(1, "pain_language", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// 按累计频次倒序
	assert.Equal(t, "contract bottleneck", got[0].Phrase)

	all, err := repo.QueryStatistics(1, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
