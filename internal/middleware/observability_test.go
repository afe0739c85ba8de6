package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iliyamo/openmat-booking/internal/metrics"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	std := logrus.StandardLogger()
	prevOut, prevFmt, prevLvl := std.Out, std.Formatter, std.GetLevel()
	std.SetOutput(&buf)
	std.SetFormatter(&logrus.JSONFormatter{})
	std.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() {
		std.SetOutput(prevOut)
		std.SetFormatter(prevFmt)
		std.SetLevel(prevLvl)
	})
	return &buf
}

func TestRequestLogger(t *testing.T) {
	buf := captureLogs(t)
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/api/clubs/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "club not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/clubs/3", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "/api/clubs/:id", entry["route"])
	assert.Equal(t, "/api/clubs/3", entry["path"])
	assert.EqualValues(t, 404, entry["status"])
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestRequestLoggerGeneratesID(t *testing.T) {
	captureLogs(t)
	e := echo.New()
	e.Use(RequestLogger())
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(Metrics(m))
	e.GET("/api/sessions/:id", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for _, p := range []string{"/api/sessions/1", "/api/sessions/2"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/sessions/:id", "200")))
}

func TestTracingMiddleware(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	e := echo.New()
	e.Use(Tracing())
	e.GET("/api/clubs/:id", func(c echo.Context) error {
		return c.String(http.StatusInternalServerError, "boom")
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clubs/7", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/clubs/:id", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}
