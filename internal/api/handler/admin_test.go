package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
	"github.com/console-hq/calleval_go_server/internal/repository"
	"github.com/console-hq/calleval_go_server/internal/service"
	"github.com/console-hq/calleval_go_server/internal/testutil"
)

func setupAdminRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	callRepo := repository.NewCallRepository(db)
	intake := service.NewIntakeService(eventRepo, jobRepo, nil, testSecret)
	h := NewAdminHandler(intake, callRepo, jobRepo)

	r := gin.New()
	r.POST("/admin/reprocess", h.Reprocess)
	r.GET("/admin/jobs", h.ListJobs)
	return r
}

func TestReprocessUnknownCall(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupAdminRouter(t, db)

	body := []byte(`{"call_id": 999}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reprocess", bytes.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReprocessEnqueues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupAdminRouter(t, db)

	call := testutil.TestCall(t, db)
	body := []byte(fmt.Sprintf(`{"call_id": %d}`, call.ID))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reprocess", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp["job_id"])

	var job model.Job
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, model.JobTypeReprocessCall, job.Type)
}

func TestReprocessBadRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupAdminRouter(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/reprocess", bytes.NewReader([]byte(`{`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListJobsDefaultsToDead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupAdminRouter(t, db)

	testutil.TestJob(t, db, func(j *model.Job) { j.Status = model.JobStatusDead })
	testutil.TestJob(t, db) // queued,不应出现在缺省查询里

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/jobs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Jobs []model.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, model.JobStatusDead, resp.Jobs[0].Status)
}
