package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treumlabs/signalcast/api/controllers"
	"github.com/treumlabs/signalcast/internal/queue"
	"github.com/treumlabs/signalcast/pkg/config"
	"github.com/treumlabs/signalcast/pkg/enums"
	"github.com/treumlabs/signalcast/pkg/logger"
)

type fakeQueueService struct {
	enqueueResults []queue.EnqueueResult
	summary        queue.ProcessSummary
	approveOK      bool
	rejectOK       bool
	rejectReason   string
	status         queue.Status
	pending        []queue.PendingItem
	purged         int64
	lastParams     queue.EnqueueParams
	lastMaxItems   int
	lastDaysOld    int
	lastItemID     string
}

func (f *fakeQueueService) EnqueueBroadcast(_ context.Context, params queue.EnqueueParams) ([]queue.EnqueueResult, error) {
	f.lastParams = params
	return f.enqueueResults, nil
}

func (f *fakeQueueService) ProcessQueue(_ context.Context, maxItems int) (queue.ProcessSummary, error) {
	f.lastMaxItems = maxItems
	return f.summary, nil
}

func (f *fakeQueueService) ApproveItem(_ context.Context, id string) (bool, error) {
	f.lastItemID = id
	return f.approveOK, nil
}

func (f *fakeQueueService) RejectItem(_ context.Context, id, reason string) (bool, error) {
	f.lastItemID = id
	f.rejectReason = reason
	return f.rejectOK, nil
}

func (f *fakeQueueService) QueueStatus(context.Context) (queue.Status, error) {
	return f.status, nil
}

func (f *fakeQueueService) PendingForApproval(context.Context) ([]queue.PendingItem, error) {
	return f.pending, nil
}

func (f *fakeQueueService) CleanupOldItems(_ context.Context, daysOld int) (int64, error) {
	f.lastDaysOld = daysOld
	return f.purged, nil
}

func newTestRouter(svc controllers.QueueService) http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(RouterParams{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "router-test"}),
		Queue:  svc,
	})
}

func TestRouterQueueAdd(t *testing.T) {
	svc := &fakeQueueService{enqueueResults: []queue.EnqueueResult{{
		Status:        enums.StatusPending,
		ItemID:        "twitter_1_abcd1234",
		Platform:      enums.PlatformTwitter,
		QueuePosition: 1,
	}}}
	router := newTestRouter(svc)

	body := `{"content":"hello world","platform":"twitter","priority":"high","source":"news_monitor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, enums.PlatformTwitter, svc.lastParams.Platform)
	assert.Equal(t, enums.PriorityHigh, svc.lastParams.Priority)
	assert.Equal(t, "news_monitor", svc.lastParams.Source)

	var envelope struct {
		Data struct {
			Results []queue.EnqueueResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Results, 1)
	assert.Equal(t, "twitter_1_abcd1234", envelope.Data.Results[0].ItemID)
}

func TestRouterQueueAddValidation(t *testing.T) {
	router := newTestRouter(&fakeQueueService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/", strings.NewReader(`{"platform":"twitter"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/queue/", strings.NewReader(`{"content":"x","platform":"myspace"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterQueueProcess(t *testing.T) {
	svc := &fakeQueueService{summary: queue.ProcessSummary{Processed: 3, Successful: 2, Skipped: 1}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/process?max_items=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.lastMaxItems)

	var envelope struct {
		Data queue.ProcessSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.Successful)
}

func TestRouterApproveAndReject(t *testing.T) {
	svc := &fakeQueueService{approveOK: true, rejectOK: false}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/item-1/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "item-1", svc.lastItemID)
	assert.Contains(t, rec.Body.String(), `"approved":true`)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/queue/item-2/reject", strings.NewReader(`{"reason":"off topic"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "item-2", svc.lastItemID)
	assert.Equal(t, "off topic", svc.rejectReason)
	assert.Contains(t, rec.Body.String(), `"rejected":false`)
}

func TestRouterStatusAndPending(t *testing.T) {
	svc := &fakeQueueService{
		status: queue.Status{
			QueueCounts: map[enums.PostStatus]int64{enums.StatusPending: 2},
		},
		pending: []queue.PendingItem{{ItemID: "a", Platform: enums.PlatformTelegram}},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/queue/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queue_counts"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/queue/pending", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestRouterCleanup(t *testing.T) {
	svc := &fakeQueueService{purged: 12}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/queue/old?days_old=14", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, svc.lastDaysOld)
	assert.Contains(t, rec.Body.String(), `"purged":12`)
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(&fakeQueueService{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-SignalCast-Env"))
}
