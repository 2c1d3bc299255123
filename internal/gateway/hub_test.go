package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/util/roomkey"

	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts []int
}

func (f *fakeCounter) SetActiveUsers(_ context.Context, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, count)
	return nil
}

func (f *fakeCounter) last() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.counts) == 0 {
		return 0, false
	}
	return f.counts[len(f.counts)-1], true
}

func startHub(t *testing.T, counter ActiveUsersCounter) *Hub {
	t.Helper()
	hub := NewHub(counter)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

// 不带网络连接的 UserConn，只观察发送缓冲
func bareConn(connID, userID string, buffer int) *UserConn {
	return &UserConn{ConnID: connID, UserID: userID, send: make(chan []byte, buffer)}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func recv(t *testing.T, c *UserConn) frame {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func TestHubJoinBroadcastsPresence(t *testing.T) {
	counter := &fakeCounter{}
	hub := startHub(t, counter)

	a := bareConn("c1", "a1", 16)
	require.NoError(t, hub.Register(a))

	update := recv(t, a)
	require.Equal(t, constants.EVENT_PRESENCE_UPDATE, update.Event)
	require.JSONEq(t, `{"online":1}`, string(update.Data))
	list := recv(t, a)
	require.Equal(t, constants.EVENT_PRESENCE_LIST, list.Event)
	require.JSONEq(t, `{"users":["a1"]}`, string(list.Data))

	require.Eventually(t, func() bool {
		n, ok := counter.last()
		return ok && n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubPublishRoutesByRoom(t *testing.T) {
	hub := startHub(t, nil)

	a := bareConn("c1", "a1", 16)
	b := bareConn("c2", "b2", 16)
	require.NoError(t, hub.Register(a))
	require.NoError(t, hub.Register(b))
	// a: 自己上线 2 帧 + b 上线 2 帧；b: 2 帧
	for i := 0; i < 4; i++ {
		recv(t, a)
	}
	for i := 0; i < 2; i++ {
		recv(t, b)
	}

	require.NoError(t, hub.Publish(context.Background(), roomkey.User("b2"), "ping", map[string]string{"x": "1"}))
	got := recv(t, b)
	require.Equal(t, "ping", got.Event)
	require.JSONEq(t, `{"x":"1"}`, string(got.Data))

	require.NoError(t, hub.PublishExcept(context.Background(), roomkey.Global, "typing:start", map[string]string{"from": "a1"}, "a1"))
	require.Equal(t, "typing:start", recv(t, b).Event)

	// 投递按顺序处理：a 只会收到第二条
	require.NoError(t, hub.Publish(context.Background(), roomkey.Global, "marker", nil))
	require.Equal(t, "marker", recv(t, a).Event)
	require.Equal(t, "marker", recv(t, b).Event)
}

func TestHubEvictsSlowConsumer(t *testing.T) {
	counter := &fakeCounter{}
	hub := startHub(t, counter)

	// 缓冲刚好放下上线时的两帧 presence
	slow := bareConn("c1", "a1", 2)
	require.NoError(t, hub.Register(slow))
	require.Eventually(t, func() bool { return len(slow.send) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), roomkey.Global, "overflow", nil))

	require.Eventually(t, func() bool { return hub.Presence().Count() == 0 }, time.Second, 5*time.Millisecond)
	<-slow.send
	<-slow.send
	_, open := <-slow.send
	require.False(t, open)

	require.Eventually(t, func() bool {
		n, _ := counter.last()
		return n == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubClosedRejectsWork(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := bareConn("c1", "a1", 16)
	require.NoError(t, hub.Register(c))
	cancel()
	<-hub.Done()

	// 退出时关闭所有连接的发送通道
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	require.ErrorIs(t, hub.Register(bareConn("c2", "b2", 1)), ErrHubClosed)
	require.ErrorIs(t, hub.Publish(context.Background(), roomkey.Global, "x", nil), ErrHubClosed)
	hub.Unregister(c)
}
