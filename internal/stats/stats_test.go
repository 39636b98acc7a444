package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")

	// a second instance must not panic on the expvar registry
	assert.NotPanics(t, func() { NewStatsUpdater(http.NewServeMux()) })
}

func TestStatsUpdater_Counters(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.RegisterMetric(NumActiveClients)
	su.RegisterMetric(NumMessagesRelayed)
	su.Run()

	su.Incr(NumActiveClients)
	su.Incr(NumActiveClients)
	su.Decr(NumActiveClients)
	su.Incr(NumMessagesRelayed)
	su.Incr("unregistered")
	su.Stop()
	su.Stop()

	require.Eventually(t, func() bool {
		return su.vars.Get(NumActiveClients).String() == "1" &&
			su.vars.Get(NumMessagesRelayed).String() == "1"
	}, time.Second, 10*time.Millisecond)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body[NumActiveClients])
	assert.Contains(t, body, "Uptime")
}
