package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/openmat-booking/internal/config"
	"github.com/iliyamo/openmat-booking/internal/metrics"
)

type CacheTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	metrics *metrics.Metrics
	cache   *RedisCache
	calls   int
	e       *echo.Echo
}

func (s *CacheTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.metrics = metrics.New()
	s.cache = NewRedisCache(config.CacheConfig{
		Enabled:      true,
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
		Methods:      map[string]bool{http.MethodGet: true},
	}, s.client, s.metrics)
	s.calls = 0

	s.e = echo.New()
	mw := s.cache.Middleware()
	s.e.GET("/api/clubs/:id", func(c echo.Context) error {
		s.calls++
		if c.Param("id") == "404" {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "club not found"})
		}
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": s.calls})
	}, mw)
	s.e.POST("/api/clubs/:id", func(c echo.Context) error {
		s.calls++
		return c.NoContent(http.StatusNoContent)
	}, mw)
}

func (s *CacheTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (s *CacheTestSuite) get(path string) *httptest.ResponseRecorder {
	return serve(s.e, http.MethodGet, path, "")
}

func (s *CacheTestSuite) TestMissThenHit() {
	first := s.get("/api/clubs/1")
	s.Equal(http.StatusOK, first.Code)
	s.Equal("MISS", first.Header().Get("X-Cache"))

	second := s.get("/api/clubs/1")
	s.Equal(http.StatusOK, second.Code)
	s.Equal("HIT", second.Header().Get("X-Cache"))
	s.Equal(first.Body.String(), second.Body.String())
	s.Equal(first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	s.Equal(1, s.calls)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))
}

func (s *CacheTestSuite) TestPathsAndQueriesAreSeparate() {
	s.get("/api/clubs/1")
	s.get("/api/clubs/2")
	s.get("/api/clubs/1?a=1&b=2")
	s.get("/api/clubs/1?b=2&a=1")
	s.Equal(3, s.calls)
}

func (s *CacheTestSuite) TestErrorsAndWritesAreNotCached() {
	s.get("/api/clubs/404")
	s.get("/api/clubs/404")
	s.Equal(2, s.calls)

	serve(s.e, http.MethodPost, "/api/clubs/1", "")
	serve(s.e, http.MethodPost, "/api/clubs/1", "")
	s.Equal(4, s.calls)
}

func (s *CacheTestSuite) TestPurge() {
	s.get("/api/clubs/1")
	s.get("/api/clubs/2")
	s.Require().Len(s.mr.Keys(), 2)
	s.Require().NoError(s.mr.Set("unrelated", "x"))

	s.Require().NoError(s.cache.Purge(context.Background()))
	s.Equal([]string{"unrelated"}, s.mr.Keys())

	s.Equal("MISS", s.get("/api/clubs/1").Header().Get("X-Cache"))
	s.Equal(3, s.calls)
}

func (s *CacheTestSuite) TestDisabledCacheIsNoop() {
	var nilCache *RedisCache
	s.NoError(nilCache.Purge(context.Background()))

	off := NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil)
	s.NoError(off.Purge(context.Background()))

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") }, off.Middleware())
	rec := serve(e, http.MethodGet, "/x", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get("X-Cache"))
}

func (s *CacheTestSuite) TestPayloadRoundTrip() {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	s.Require().NoError(err)

	status, gotHdr, body, ok := decodePayload(bs)
	s.True(ok)
	s.Equal(http.StatusOK, status)
	s.Equal("application/json", gotHdr.Get("Content-Type"))
	s.Equal(`{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	s.False(ok)
}
