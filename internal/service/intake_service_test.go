package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/model/dto"
	"github.com/console-hq/calleval_go_server/internal/pkg/webhook"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/testutil"
)

const testWebhookSecret = "whsec_" + "dGVzdHNpZ25pbmdrZXk=" // base64("testsigningkey")

// stubFetcher 固定返回注入的载荷;nil 表示供应商查无此会议
type stubFetcher struct {
	raw  json.RawMessage
	list []json.RawMessage
	err  error
}

func (f *stubFetcher) FindByRecordingID(_ context.Context, _ string) (json.RawMessage, error) {
	return f.raw, f.err
}

func (f *stubFetcher) FindByURL(_ context.Context, _ string) (json.RawMessage, error) {
	return f.raw, f.err
}

func (f *stubFetcher) ListAll(_ context.Context) ([]json.RawMessage, error) {
	return f.list, f.err
}

func newTestIntake(t *testing.T, db *gorm.DB, fetcher MeetingFetcher) (*IntakeService, *repository.JobRepository) {
	t.Helper()
	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	return NewIntakeService(eventRepo, jobRepo, fetcher, testWebhookSecret), jobRepo
}

// signHeaders 按供应商口径签名:HMAC-SHA256("{id}.{ts}.{body}"),密钥为去前缀后的 base64 解码
func signHeaders(t *testing.T, id string, body []byte) webhook.Headers {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString("dGVzdHNpZ25pbmdrZXk=")
	require.NoError(t, err)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return webhook.Headers{
		ID:        id,
		Timestamp: ts,
		Signature: "v1," + sig,
	}
}

func TestAdmitWebhookEnqueuesJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, nil)
	body := []byte(`{"recording_id": 42, "title": "Console/Acme"}`)
	headers := signHeaders(t, "msg_1", body)

	ev, err := svc.AdmitWebhook(headers, `{"webhook-id":"msg_1"}`, body)
	require.NoError(t, err)
	assert.True(t, ev.Verified)
	assert.Equal(t, "msg_1", ev.ExternalEventID)

	var jobs []model.Job
	require.NoError(t, db.Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobTypeProcessMeeting, jobs[0].Type)

	var payload dto.ProcessMeetingPayload
	require.NoError(t, json.Unmarshal([]byte(jobs[0].Payload), &payload))
	assert.Equal(t, ev.ID, payload.WebhookEventID)
}

func TestAdmitWebhookDuplicateSkipsEnqueue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, nil)
	body := []byte(`{"recording_id": 42, "title": "Console/Acme"}`)

	first, err := svc.AdmitWebhook(signHeaders(t, "msg_dup", body), "{}", body)
	require.NoError(t, err)
	second, err := svc.AdmitWebhook(signHeaders(t, "msg_dup", body), "{}", body)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// 重复投递不追加任务
	var count int64
	db.Model(&model.Job{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAdmitWebhookRejectsBadSignature(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, nil)
	body := []byte(`{"recording_id": 42}`)
	headers := signHeaders(t, "msg_2", body)

	// 签名对不上篡改后的载荷
	_, err := svc.AdmitWebhook(headers, "{}", []byte(`{"recording_id": 43}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// 事件与任务都不落库
	var events, jobs int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	db.Model(&model.Job{}).Count(&jobs)
	assert.Zero(t, events)
	assert.Zero(t, jobs)
}

func TestAdmitWebhookRejectsStaleTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, nil)
	body := []byte(`{"recording_id": 42}`)
	headers := signHeaders(t, "msg_3", body)
	headers.Timestamp = strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	_, err := svc.AdmitWebhook(headers, "{}", body)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestProcessByRecordingID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	raw := json.RawMessage(`{"recording_id": 777, "title": "Console/Acme"}`)
	svc, _ := newTestIntake(t, db, &stubFetcher{raw: raw})

	ev, err := svc.ProcessByRecordingID(context.Background(), "777", "https://hooks.example/cb")
	require.NoError(t, err)
	assert.Equal(t, "pipeline_777", ev.ExternalEventID)
	assert.False(t, ev.Verified)

	var job model.Job
	require.NoError(t, db.First(&job).Error)
	var payload dto.ProcessMeetingPayload
	require.NoError(t, json.Unmarshal([]byte(job.Payload), &payload))
	assert.Equal(t, "https://hooks.example/cb", payload.CallbackURL)
}

func TestProcessByRecordingIDNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, &stubFetcher{raw: nil})
	_, err := svc.ProcessByRecordingID(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestProcessByRecordingIDFetchError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, &stubFetcher{err: errors.New("upstream down")})
	_, err := svc.ProcessByRecordingID(context.Background(), "777", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMeetingNotFound)
}

func TestImportByURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	raw := json.RawMessage(`{"recording_id": 9001, "title": "Console/Globex"}`)
	svc, _ := newTestIntake(t, db, &stubFetcher{raw: raw})

	ev, err := svc.ImportByURL(context.Background(), "https://fathom.video/share/xyz")
	require.NoError(t, err)
	assert.Equal(t, "manual_import_9001", ev.ExternalEventID)
}

func TestImportByURLUnusableMeeting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	// 供应商返回了载荷但缺标题和录音 ID
	svc, _ := newTestIntake(t, db, &stubFetcher{raw: json.RawMessage(`{}`)})
	_, err := svc.ImportByURL(context.Background(), "https://fathom.video/share/xyz")
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestBulkImportFiltersAndDedups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	withTranscript := json.RawMessage(`{"recording_id": 1, "title": "Console/Acme", "transcript": [{"speaker": {"display_name": "Dana Wu"}, "text": "hi", "timestamp": "00:00:01"}]}`)
	noTranscript := json.RawMessage(`{"recording_id": 2, "title": "Console/Globex", "transcript": []}`)
	unusable := json.RawMessage(`{"note": "not a meeting"}`)

	svc, _ := newTestIntake(t, db, &stubFetcher{
		list: []json.RawMessage{withTranscript, noTranscript, unusable},
	})

	imported, skipped, err := svc.BulkImport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, skipped)

	var ev model.WebhookEvent
	require.NoError(t, db.First(&ev).Error)
	assert.Equal(t, "manual_import_1", ev.ExternalEventID)

	var jobs int64
	db.Model(&model.Job{}).Count(&jobs)
	assert.Equal(t, int64(1), jobs)

	// 重跑:同一会议已入库,不再导入也不再入队
	imported, skipped, err = svc.BulkImport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 3, skipped)

	db.Model(&model.Job{}).Count(&jobs)
	assert.Equal(t, int64(1), jobs)
}

func TestBulkImportListError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, &stubFetcher{err: errors.New("upstream down")})
	_, _, err := svc.BulkImport(context.Background())
	require.Error(t, err)
}

func TestEnqueueHelpers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc, _ := newTestIntake(t, db, nil)

	reprocess, err := svc.EnqueueReprocess(5)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeReprocessCall, reprocess.Type)
	assert.Contains(t, reprocess.Payload, `"call_id":5`)

	extract, err := svc.EnqueuePhraseExtraction(dto.GeoTriggerRequest{
		CRMPipelineID: "p1",
		CRMStageID:    "s1",
		QualifiedOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeExtractPhrases, extract.Type)

	var payload dto.ExtractPhrasesPayload
	require.NoError(t, json.Unmarshal([]byte(extract.Payload), &payload))
	assert.True(t, payload.QualifiedOnly)
	assert.Equal(t, "p1", payload.CRMPipelineID)

	weekly, err := svc.EnqueueWeeklyAnalysis()
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeRunWeeklyAnalysis, weekly.Type)
}
