package handler

import (
	"bytes"
	"encoding/json"
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

func setupGeoRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eventRepo := repository.NewEventRepository(db)
	jobRepo := repository.NewJobRepository(db)
	callRepo := repository.NewCallRepository(db)
	runRepo := repository.NewRunRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	intake := service.NewIntakeService(eventRepo, jobRepo, nil, testSecret)
	geoSvc := service.NewGeoService(geoRepo, callRepo, runRepo, nil, "gpt-test", nil, "Console")
	h := NewGeoHandler(intake, geoSvc)

	r := gin.New()
	r.POST("/geo/trigger", h.Trigger)
	r.POST("/geo/weekly", h.TriggerWeekly)
	r.GET("/geo/results", h.Results)
	return r
}

func TestGeoTriggerEnqueues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupGeoRouter(t, db)

	body := []byte(`{"crm_pipeline_id": "p1", "crm_stage_id": "s1", "qualified_only": true}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/geo/trigger", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, w.Code)

	var job model.Job
	require.NoError(t, db.First(&job).Error)
	assert.Equal(t, model.JobTypeExtractPhrases, job.Type)
	assert.Contains(t, job.Payload, `"qualified_only":true`)
}

func TestGeoTriggerWeeklyEnqueues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupGeoRouter(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/geo/weekly", nil))

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp["job_id"])
}

func TestGeoResultsNoCompletedRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	r := setupGeoRouter(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/geo/results", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
