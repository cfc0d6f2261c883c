package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordImageOp(t *testing.T) {
	RecordImageOp("upload", errors.New("disk full"))
	RecordImageOp("reorder", nil)

	body := scrape(t)
	assert.Contains(t, body, `backoffice_images_operations_total{operation="upload",result="error"}`)
	assert.Contains(t, body, `backoffice_images_operations_total{operation="reorder",result="ok"}`)
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	ObserveRequest(http.MethodGet, "/health", "200", time.Now())

	body := scrape(t)
	assert.Contains(t, body, `backoffice_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
