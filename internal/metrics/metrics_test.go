package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"resume-screener/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOutcome(t *testing.T) {
	m := NewScreenerMetrics("", "test")
	m.ObserveOutcome("")
	m.ObserveOutcome("")
	m.ObserveOutcome(string(types.KindTransport))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resumeOutcomes.WithLabelValues("test", "scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resumeOutcomes.WithLabelValues("test", "transport")))
}

func TestObserveEvaluatorCall(t *testing.T) {
	m := NewScreenerMetrics("", "test")
	m.ObserveEvaluatorCall("score_resume", time.Second, nil)
	m.ObserveEvaluatorCall("score_resume", time.Second, types.NewContractError("score_resume", "", errors.New("bad")))
	m.ObserveEvaluatorCall("score_resume", time.Second, errors.New("dial tcp: refused"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluatorCalls.WithLabelValues("test", "score_resume", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluatorCalls.WithLabelValues("test", "score_resume", "evaluator_contract")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluatorCalls.WithLabelValues("test", "score_resume", "transport")))
}

func TestStageUploadCleanup(t *testing.T) {
	m := NewScreenerMetrics("custom", "test")
	m.ObserveStage("render", 10*time.Millisecond, nil)
	m.ObserveStage("render", 10*time.Millisecond, errors.New("x"))
	m.ObserveUpload(nil)
	m.ObserveCleanup(errors.New("gone"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration, "custom_pipeline_stage_duration_seconds"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cleanupTotal.WithLabelValues("test", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := NewScreenerMetrics("", "test")
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	h.Use(m.Middleware())
	h.GET("/api/v1/health", func(ctx context.Context, c *app.RequestContext) {
		c.String(consts.StatusOK, "ok")
	})
	h.GET("/metrics", m.HertzHandler())

	w := ut.PerformRequest(h.Engine, "GET", "/api/v1/health", nil)
	require.Equal(t, consts.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("test", "GET", "/api/v1/health", "200")))

	w = ut.PerformRequest(h.Engine, "GET", "/metrics", nil)
	require.Equal(t, consts.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "resume_screener_http_requests_total"), body)
}
