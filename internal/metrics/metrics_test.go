package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/store"
)

var _ store.Instrumentation = (*Metrics)(nil)

func TestMetrics_Counts(t *testing.T) {
	m := New()

	m.ActionProcessed("signin.SignIn", time.Millisecond)
	m.ActionProcessed("signin.SignIn", 2*time.Millisecond)
	m.ActionDropped(store.DropCancelled, 3)
	m.EffectCancelled("app.order.o17", true)
	m.EffectCancelled("app.order.o18", false)
	m.EffectCancelled("refresh.orders", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("signin.SignIn")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.dropped.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancelled.WithLabelValues("app.order", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancelled.WithLabelValues("app.order", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancelled.WithLabelValues("refresh.orders", "true")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestIDLabel(t *testing.T) {
	assert.Equal(t, "app.order", IDLabel("app.order.a.b"))
	assert.Equal(t, "signin.request", IDLabel("signin.request"))
	assert.Equal(t, "x", IDLabel("x"))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ActionProcessed("app.SignOut", time.Microsecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `fieldflow_actions_total{action="app.SignOut"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
