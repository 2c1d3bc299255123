package https_server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat_gateway/internal/config"
	"chat_gateway/internal/dao/mysql/repository"
	"chat_gateway/internal/gateway"
	"chat_gateway/internal/handler"
	"chat_gateway/internal/service"
	"chat_gateway/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type apiEnv struct {
	server *httptest.Server
	svc    *service.Services
	tokens *jwt.Manager
}

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := service.NewServices(repository.NewRepositories(db), nil, config.GatewayConfig{AnalyticsWorkers: 1, AnalyticsBuffer: 16})
	hub := gateway.NewHub(svc.Analytics)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	tokens := jwt.Init("api-test-secret", 60)
	gw := gateway.NewServer(hub, gateway.NewDispatcher(hub, svc.Message, nil), tokens, gateway.Options{})
	engine := Init(handler.NewHandlers(svc, gw), config.MainConfig{Mode: "dev"})
	ts := httptest.NewServer(engine)

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.Done()
		svc.Close()
		_ = sqlDB.Close()
	})
	return &apiEnv{server: ts, svc: svc, tokens: tokens}
}

func (e *apiEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newAPIEnv(t)

	for _, path := range []string{"/messages/global", "/presence", "/analytics"} {
		status, body := env.do(t, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, status, path)
		require.Equal(t, 1006, body.Code)
		require.Equal(t, "Unauthorized", body.Msg)
	}

	status, _ := env.do(t, http.MethodGet, "/presence", "garbage", "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRoomHistory(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.Message.Append(ctx, "a1", "b2", fmt.Sprintf("m%d", i), nil)
		require.NoError(t, err)
	}

	status, body := env.do(t, http.MethodGet, "/messages/dm:a1:b2?page=1&limit=2", env.token(t, "b2", "user"), "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1000, body.Code)

	var page struct {
		Messages []struct {
			Text   string   `json:"text"`
			ReadBy []string `json:"readBy"`
		} `json:"messages"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.Len(t, page.Messages, 2)
	require.Equal(t, "m1", page.Messages[0].Text)
	require.Equal(t, "m2", page.Messages[1].Text)
	require.EqualValues(t, 3, page.Pagination.Total)
	require.EqualValues(t, 2, page.Pagination.Pages)

	// 上一次拉取已把这一页标记为 b2 已读
	status, body = env.do(t, http.MethodGet, "/messages/dm:a1:b2?limit=2", env.token(t, "a1", "user"), "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.Equal(t, []string{"b2"}, page.Messages[1].ReadBy)
}

func TestRoomHistoryRejectsOutsiders(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/messages/dm:a1:b2", env.token(t, "c3", "user"), "")
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, 1007, body.Code)

	status, _ = env.do(t, http.MethodGet, "/messages/not-a-room", env.token(t, "c3", "user"), "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/messages/global?page=abc", env.token(t, "c3", "user"), "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAnalyticsRoutes(t *testing.T) {
	env := newAPIEnv(t)
	user := env.token(t, "a1", "user")
	admin := env.token(t, "root", "admin")

	status, body := env.do(t, http.MethodGet, "/analytics", user, "")
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, 1007, body.Code)

	status, _ = env.do(t, http.MethodPost, "/analytics/message", user, "")
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		status, body := env.do(t, http.MethodGet, "/analytics/today", admin, "")
		if status != http.StatusOK {
			return false
		}
		var today struct {
			TotalMessages int64 `json:"totalMessages"`
		}
		return json.Unmarshal(body.Data, &today) == nil && today.TotalMessages == 1
	}, 2*time.Second, 20*time.Millisecond)

	status, _ = env.do(t, http.MethodPost, "/analytics/active", admin, `{"count": -1}`)
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/analytics/active", admin, `{}`)
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/analytics/active", user, `{"count": 3}`)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/analytics?startDate=2024-05-02&endDate=2024-05-01", admin, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/analytics", admin, "")
	require.Equal(t, http.StatusOK, status)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &rows))
	require.Len(t, rows, 1)
}

func TestPresenceEmpty(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/presence", env.token(t, "a1", "user"), "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"online":0,"users":[]}`, string(body.Data))
}
