package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
	"github.com/console-hq/calleval_go_server/internal/testutil"
)

const testSecret = "whsec_" + "dGVzdHNpZ25pbmdrZXk=" // base64("testsigningkey")

func setupWebhookRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	intake := service.NewIntakeService(
		repository.NewEventRepository(db),
		repository.NewJobRepository(db),
		nil,
		testSecret,
	)
	h := NewWebhookHandler(intake)

	r := gin.New()
	r.POST("/webhooks/fathom", h.Receive)
	return r
}

func signedRequest(t *testing.T, id string, body []byte) *http.Request {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString("dGVzdHNpZ25pbmdrZXk=")
	require.NoError(t, err)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/fathom", bytes.NewReader(body))
	req.Header.Set("webhook-id", id)
	req.Header.Set("webhook-timestamp", ts)
	req.Header.Set("webhook-signature", "v1,"+sig)
	return req
}

func TestWebhookReceiveOK(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupWebhookRouter(t, db)

	body := []byte(`{"recording_id": 42, "title": "Console/Acme"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedRequest(t, "msg_1", body))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.NotZero(t, resp["event_id"])

	var count int64
	db.Model(&model.WebhookEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestWebhookReceiveMissingHeaders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupWebhookRouter(t, db)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/fathom", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookReceiveBadSignature(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupWebhookRouter(t, db)

	body := []byte(`{"recording_id": 42}`)
	req := signedRequest(t, "msg_2", body)
	req.Header.Set("webhook-signature", "v1,bm90LXRoZS1yaWdodC1zaWc=")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var count int64
	db.Model(&model.WebhookEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestWebhookReceiveDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupWebhookRouter(t, db)

	body := []byte(`{"recording_id": 42, "title": "Console/Acme"}`)
	first := httptest.NewRecorder()
	r.ServeHTTP(first, signedRequest(t, "msg_dup", body))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, signedRequest(t, "msg_dup", body))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)

	var events, jobs int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	db.Model(&model.Job{}).Count(&jobs)
	assert.Equal(t, int64(1), events)
	assert.Equal(t, int64(1), jobs)
}
