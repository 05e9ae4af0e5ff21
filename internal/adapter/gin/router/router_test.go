package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"traced-user-service/internal/adapter/db/gormtrace"
	"traced-user-service/internal/adapter/db/postgres"
	"traced-user-service/internal/adapter/gin/handler"
	"traced-user-service/internal/adapter/gin/middleware"
	"traced-user-service/internal/usecase/user"
	"traced-user-service/pkg/logger"
	"traced-user-service/pkg/tracing"
)

type testServer struct {
	router   *gin.Engine
	usecase  *user.Usecase
	exporter *tracetest.InMemoryExporter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.NewGormLogger(log, 0.2, "warn"),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Use(gormtrace.New(tp)))

	repo := postgres.NewUserRepoPG(db, log)
	require.NoError(t, repo.Migrate(context.Background()))

	uc := user.New(repo, tp.Tracer(tracing.InstrumentationName), log)

	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(reg)
	require.NoError(t, err)

	r := SetupRouter(handler.NewUserHandler(uc, log), Options{
		TracerProvider: tp,
		Metrics:        metrics,
		Gatherer:       reg,
		Swagger:        true,
	}, log)

	exporter.Reset()
	return &testServer{router: r, usecase: uc, exporter: exporter}
}

func (s *testServer) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]any
	if strings.HasPrefix(w.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func (s *testServer) listUsers(t *testing.T) []handler.UserResponse {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var users []handler.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	return users
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	for range 3 {
		w, _ := s.do(t, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	}
}

func TestSeedThenList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	assert.Empty(t, s.listUsers(t))

	resp, err := s.usecase.SeedUsers(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Seeded)

	users := s.listUsers(t)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, []string{users[0].Name, users[1].Name, users[2].Name})

	// a second start leaves the table alone
	resp, err = s.usecase.SeedUsers(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Seeded)
	assert.Len(t, s.listUsers(t), 3)
}

func TestSeedSkippedWhenTableHasRows(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/users?name=Zoe&email=zoe@example.com")
	require.Equal(t, http.StatusOK, w.Code)

	resp, err := s.usecase.SeedUsers(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Seeded)

	users := s.listUsers(t)
	require.Len(t, users, 1)
	assert.Equal(t, "Zoe", users[0].Name)
}

func TestReadUser(t *testing.T) {
	s := newTestServer(t)
	_, err := s.usecase.SeedUsers(context.Background())
	require.NoError(t, err)

	for _, u := range s.listUsers(t) {
		w, body := s.do(t, http.MethodGet, fmt.Sprintf("/users/%d", u.ID))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(u.ID), body["id"])
		assert.Equal(t, u.Name, body["name"])
		assert.Equal(t, u.Email, body["email"])
	}

	w, body := s.do(t, http.MethodGet, "/users/99999")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", body["detail"])

	w, _ = s.do(t, http.MethodGet, "/users/abc")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreateThenRead(t *testing.T) {
	s := newTestServer(t)
	_, err := s.usecase.SeedUsers(context.Background())
	require.NoError(t, err)

	w, created := s.do(t, http.MethodPost, "/users?name=Dave&email=dave@example.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dave", created["name"])
	assert.Equal(t, "dave@example.com", created["email"])

	id := int64(created["id"].(float64))
	assert.Greater(t, id, int64(3))

	w, got := s.do(t, http.MethodGet, fmt.Sprintf("/users/%d", id))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, got)
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	_, err := s.usecase.SeedUsers(context.Background())
	require.NoError(t, err)

	w, body := s.do(t, http.MethodPost, "/users?name=Alice2&email=alice@example.com")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", body["error"])

	count := 0
	for _, u := range s.listUsers(t) {
		if u.Email == "alice@example.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreateMissingField(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/users?name=NoEmail")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation_error", body["error"])
	assert.Empty(t, s.listUsers(t))
}

func TestSpans(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/users/1")
	require.Equal(t, http.StatusNotFound, w.Code)

	spans := s.exporter.GetSpans()
	byName := map[string]tracetest.SpanStub{}
	for _, sp := range spans {
		byName[sp.Name] = sp
	}

	server, ok := byName["HTTP GET /users/:id"]
	require.True(t, ok, "server span missing: %v", spans)
	handlerSpan, ok := byName[user.SpanReadUser]
	require.True(t, ok)
	query, ok := byName["SELECT"]
	require.True(t, ok)

	assert.Equal(t, server.SpanContext.SpanID(), handlerSpan.Parent.SpanID())
	assert.Equal(t, handlerSpan.SpanContext.SpanID(), query.Parent.SpanID())
	assert.Equal(t, server.SpanContext.TraceID(), query.SpanContext.TraceID())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/health")
	w, _ := s.do(t, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_server_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestSwaggerDoc(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/swagger/users.swagger.json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "paths")
}
