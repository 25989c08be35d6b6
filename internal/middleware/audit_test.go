package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/internal/service"
	"github.com/noah-isme/siwes-portal-api/pkg/jobs"
)

type fakeAuditStore struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAuditStore) Create(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeAuditStore) List(context.Context, models.AuditLogFilter) ([]models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditLog, len(f.logs))
	copy(out, f.logs)
	return out, nil
}

func (f *fakeAuditStore) all() []models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AuditLog, len(f.logs))
	copy(out, f.logs)
	return out
}

type fakeNotificationWriter struct{}

func (fakeNotificationWriter) BulkCreate(context.Context, []models.AdminNotification) error {
	return nil
}

type fakeAdminLister struct{}

func (fakeAdminLister) ListActiveAdminIDs(context.Context) ([]string, error) {
	return nil, nil
}

func newAuditEngine(t *testing.T, store *fakeAuditStore) (*gin.Engine, *service.AuditService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewAuditService(store, fakeNotificationWriter{}, fakeAdminLister{},
		jobs.QueueConfig{Workers: 1, BufferSize: 8}, zap.NewNop())
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})
	})
	r.GET("/students/:id/export/logbook",
		Audit(svc, models.AuditActionExportDownload, "exports"),
		func(c *gin.Context) {
			if c.Param("id") == "missing" {
				c.Status(http.StatusNotFound)
				return
			}
			c.String(http.StatusOK, "Week,Status\n")
		})
	return r, svc
}

func TestAuditMiddlewareRecordsSuccessfulDownload(t *testing.T) {
	store := &fakeAuditStore{}
	r, _ := newAuditEngine(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/export/logbook", nil)
	req.Header.Set("User-Agent", "test-agent")
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(store.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	logs := store.all()
	assert.Equal(t, models.AuditActionExportDownload, logs[0].Action)
	assert.Equal(t, "exports", logs[0].Resource)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, "user-1", *logs[0].UserID)
	require.NotNil(t, logs[0].ResourceID)
	assert.Equal(t, "stu-1", *logs[0].ResourceID)
	assert.Equal(t, "test-agent", logs[0].UserAgent)
}

func TestAuditMiddlewareSkipsFailedRequests(t *testing.T) {
	store := &fakeAuditStore{}
	r, _ := newAuditEngine(t, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/missing/export/logbook", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// A follow-up successful download proves the failed one was skipped,
	// not just still in flight.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/stu-2/export/logbook", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(store.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	logs := store.all()
	require.NotNil(t, logs[0].ResourceID)
	assert.Equal(t, "stu-2", *logs[0].ResourceID)
}
