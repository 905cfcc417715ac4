package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probeGet(t *testing.T, h http.HandlerFunc) (int, body) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return w.Code, b
}

type flakyPinger struct{ err atomic.Pointer[error] }

func (p *flakyPinger) Ping(context.Context) error {
	if e := p.err.Load(); e != nil {
		return *e
	}
	return nil
}

func (p *flakyPinger) fail(err error) { p.err.Store(&err) }
func (p *flakyPinger) heal()          { p.err.Store(nil) }

func TestReadiness(t *testing.T) {
	h := New()
	db := &flakyPinger{}
	h.Add(Readiness, "postgres", time.Second, PingCheck(db))

	code, b := probeGet(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "pending", b.Checks["postgres"])
	assert.Equal(t, "not ready", b.Checks["server"])

	h.probes[0].run(context.Background())
	h.SetReady(true)
	code, b = probeGet(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
	assert.Empty(t, b.Checks)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady(), "draining")
}

func TestFailureThreshold(t *testing.T) {
	h := New()
	db := &flakyPinger{}
	h.Add(Readiness, "postgres", time.Second, PingCheck(db))
	h.SetReady(true)
	p := h.probes[0]
	p.run(context.Background())

	db.fail(errors.New("connection refused"))
	for range FailureThreshold - 1 {
		p.run(context.Background())
	}
	assert.True(t, h.IsReady(), "below threshold")

	p.run(context.Background())
	code, b := probeGet(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", b.Checks["postgres"])

	db.heal()
	p.run(context.Background())
	assert.True(t, h.IsReady())
}

func TestLiveness(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", time.Second, GoroutineCountCheck(1))
	h.Add(Readiness, "redis", time.Second, func(context.Context) error { return errors.New("down") })

	h.Start(context.Background(), time.Hour)
	require.Eventually(t, func() bool {
		return len(h.failures(Liveness)) == 1 && h.failures(Liveness)["goroutines"] != "pending"
	}, time.Second, 10*time.Millisecond)
	h.Stop()
	h.Stop()

	code, b := probeGet(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, b.Checks["goroutines"], "limit 1")
	assert.NotContains(t, b.Checks, "redis", "readiness checks stay off the liveness probe")
}

func TestNoChecks(t *testing.T) {
	h := New()
	code, b := probeGet(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", b.Status)
}
