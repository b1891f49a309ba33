package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/interfaces/http/dto"
	"github.com/store/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	up   = PingFunc(func(context.Context) error { return nil })
	down = PingFunc(func(context.Context) error { return errors.New("connection refused") })
)

func healthRouter(h *HealthHandler) *gin.Engine {
	router := gin.New()
	router.GET("/health", h.Check)
	return router
}

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name       string
		handler    *HealthHandler
		wantStatus int
		wantBody   dto.HealthResponse
	}{
		{
			name:       "all up",
			handler:    NewHealthHandler(time.Second, zap.NewNop()).Critical("database", up).Optional("search", up),
			wantStatus: http.StatusOK,
			wantBody:   dto.HealthResponse{Status: StatusUp, Components: map[string]string{"database": StatusUp, "search": StatusUp}},
		},
		{
			name:       "optional component down degrades",
			handler:    NewHealthHandler(time.Second, zap.NewNop()).Critical("database", up).Optional("cache", down),
			wantStatus: http.StatusOK,
			wantBody:   dto.HealthResponse{Status: StatusDegraded, Components: map[string]string{"database": StatusUp, "cache": StatusDown}},
		},
		{
			name:       "database down is unavailable",
			handler:    NewHealthHandler(time.Second, zap.NewNop()).Critical("database", down).Optional("search", down),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   dto.HealthResponse{Status: StatusDown, Components: map[string]string{"database": StatusDown, "search": StatusDown}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.RunHTTPTestCase(t, healthRouter(tt.handler), testutil.HTTPTestCase{
				Path:           "/health",
				ExpectedStatus: tt.wantStatus,
			})
			got := testutil.DecodeJSON[dto.HealthResponse](t, w)
			assert.NotEmpty(t, got.Time)
			got.Time = ""
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestHealthHandler_PingsDatabase(t *testing.T) {
	m := testutil.NewMockDB(t)
	m.Mock.ExpectPing()
	m.Mock.ExpectPing().WillReturnError(errors.New("server closed the connection"))

	core, logs := observer.New(zapcore.WarnLevel)
	router := healthRouter(NewHealthHandler(time.Second, zap.New(core)).Critical("database", PingFunc(m.SqlDB.PingContext)))

	testutil.RunHTTPTestCase(t, router, testutil.HTTPTestCase{Path: "/health", ExpectedStatus: http.StatusOK})
	testutil.RunHTTPTestCase(t, router, testutil.HTTPTestCase{Path: "/health", ExpectedStatus: http.StatusServiceUnavailable})

	m.ExpectationsWereMet(t)
	assert.Equal(t, 1, logs.FilterField(zap.String("component", "database")).Len())
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	slow := PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	router := healthRouter(NewHealthHandler(10*time.Millisecond, zap.NewNop()).Critical("database", slow))

	testutil.RunHTTPTestCase(t, router, testutil.HTTPTestCase{Path: "/health", ExpectedStatus: http.StatusServiceUnavailable})
}
