package redis

import (
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSubmitTaskDrainsOnClose(t *testing.T) {
	rc := NewRedisCache(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 2, 8)

	var done int32
	for i := 0; i < 20; i++ {
		rc.SubmitTask(func() { atomic.AddInt32(&done, 1) })
	}
	require.NoError(t, rc.Close())
	require.EqualValues(t, 20, atomic.LoadInt32(&done))
	require.NoError(t, rc.Close())
}

func TestEscapePattern(t *testing.T) {
	require.Equal(t, "room_page:dm:a1:b2", EscapePattern("room_page:dm:a1:b2"))
	require.Equal(t, `a\*b\?c\[d\]`, EscapePattern("a*b?c[d]"))
}
