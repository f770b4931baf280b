package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObserversDoNotPanicBeforeInit(t *testing.T) {
	// Observers lazily Init, so calling them first must be safe.
	ObserveFetch("ok")
	ObserveRetry()
	ObservePage(5)
	ObserveRun("completed", 12.5)
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ObservePage(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "futdex_pages_crawled_total"))
}
