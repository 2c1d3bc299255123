package client

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"chat_gateway/internal/config"
	"chat_gateway/internal/dao/mysql/repository"
	"chat_gateway/internal/gateway"
	"chat_gateway/internal/handler"
	"chat_gateway/internal/https_server"
	"chat_gateway/internal/service"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gatewayEnv struct {
	url    string
	tokens *jwt.Manager
}

func startGateway(t *testing.T) *gatewayEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := service.NewServices(repository.NewRepositories(db), nil, config.GatewayConfig{AnalyticsWorkers: 1})
	hub := gateway.NewHub(svc.Analytics)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	tokens := jwt.Init("client-test-secret", 60)
	gw := gateway.NewServer(hub, gateway.NewDispatcher(hub, svc.Message, nil), tokens, gateway.Options{})
	ts := httptest.NewServer(https_server.Init(handler.NewHandlers(svc, gw), config.MainConfig{Mode: "dev"}))

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-hub.Done()
		svc.Close()
		_ = sqlDB.Close()
	})
	return &gatewayEnv{url: ts.URL, tokens: tokens}
}

func (e *gatewayEnv) connect(t *testing.T, self, peer string) *Client {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(self, self+"@example.com", "user")
	require.NoError(t, err)
	c, err := Dial(context.Background(), e.url, token, self, peer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

// waitEvent 丢弃其他事件直到收到 name
func waitEvent(t *testing.T, c *Client, name string) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			require.True(t, ok, "event stream closed")
			if ev.Name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", name)
		}
	}
}

func TestClientSendConvergesOnBothSides(t *testing.T) {
	env := startGateway(t)
	a := env.connect(t, "a1", "b2")
	b := env.connect(t, "b2", "a1")
	// b 收到自己的上线广播后才算加入房间
	waitEvent(t, b, constants.EVENT_PRESENCE_LIST)

	sent, err := a.Send("hello b2", nil)
	require.NoError(t, err)
	require.True(t, sent.Optimistic)

	waitEvent(t, a, constants.EVENT_MESSAGE_NEW)
	waitEvent(t, b, constants.EVENT_MESSAGE_NEW)

	msgsA := a.Messages()
	require.Len(t, msgsA, 1)
	require.False(t, msgsA[0].Optimistic)
	require.NotEqual(t, sent.Id, msgsA[0].Id)
	require.Equal(t, "hello b2", msgsA[0].Text)
	require.Empty(t, a.Pending())

	msgsB := b.Messages()
	require.Len(t, msgsB, 1)
	require.Equal(t, msgsA[0].Id, msgsB[0].Id)

	// 已读回执发往消息接收者的个人房间
	require.NoError(t, b.MarkRead(msgsB[0].Id))
	waitEvent(t, b, constants.EVENT_MESSAGE_READ)
	require.Equal(t, []string{"b2"}, b.Messages()[0].ReadBy)
}

func TestClientLoadHistory(t *testing.T) {
	env := startGateway(t)
	a := env.connect(t, "a1", "b2")

	for i := 0; i < 3; i++ {
		_, err := a.Send(fmt.Sprintf("m%d", i), nil)
		require.NoError(t, err)
		waitEvent(t, a, constants.EVENT_MESSAGE_NEW)
	}

	b := env.connect(t, "b2", "a1")
	page, err := b.LoadHistory(context.Background(), 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Pagination.Total)
	require.EqualValues(t, 2, page.Pagination.Pages)

	got := b.Messages()
	require.Len(t, got, 2)
	require.Equal(t, "m1", got[0].Text)
	require.Equal(t, "m2", got[1].Text)
}

func TestDialRejectsBadToken(t *testing.T) {
	env := startGateway(t)
	_, err := Dial(context.Background(), env.url, "not-a-jwt", "a1", "b2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
