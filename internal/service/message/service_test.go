package message

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"chat_gateway/internal/dao/mysql/repository"
	"chat_gateway/internal/model"
	"chat_gateway/pkg/errorx"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo 内存版 MessageRepository
type fakeRepo struct {
	mu       sync.Mutex
	messages []*model.Message
	failNext error
}

func (r *fakeRepo) Create(_ context.Context, m *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	cp := *m
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeRepo) FindByUuid(_ context.Context, uuid string) (*model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Uuid == uuid {
			cp := *m
			cp.Readers = append([]model.MessageReader(nil), m.Readers...)
			return &cp, nil
		}
	}
	return nil, errorx.Wrap(gorm.ErrRecordNotFound, errorx.CodeNotFound, "not found")
}

func (r *fakeRepo) AddReader(_ context.Context, uuid, reader string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Uuid == uuid && !lo.Contains(m.ReadBy(), reader) {
			m.Readers = append(m.Readers, model.MessageReader{MessageUuid: uuid, ReaderId: reader})
		}
	}
	return nil
}

func (r *fakeRepo) AddReaders(ctx context.Context, uuids []string, reader string) error {
	for _, id := range uuids {
		if err := r.AddReader(ctx, id, reader); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRepo) inRoom(room string) []*model.Message {
	out := lo.Filter(r.messages, func(m *model.Message, _ int) bool { return m.RoomId == room })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeRepo) PageByRoom(_ context.Context, room string, offset, limit int) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.inRoom(room)
	if offset >= len(all) {
		return []model.Message{}, nil
	}
	end := lo.Min([]int{offset + limit, len(all)})
	return lo.Map(all[offset:end], func(m *model.Message, _ int) model.Message { return *m }), nil
}

func (r *fakeRepo) CountByRoom(_ context.Context, room string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.inRoom(room))), nil
}

// fakeCache 内存版 AsyncCacheService，SubmitTask 同步执行
// sets 和 size 只统计分页缓存
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	sets int

	beforeTask func() // 在异步任务执行前调用一次
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]string{}} }

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	if strings.HasPrefix(key, pageCachePrefix) {
		c.sets++
	}
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *fakeCache) SubmitTask(action func()) {
	if hook := c.beforeTask; hook != nil {
		c.beforeTask = nil
		hook()
	}
	action()
}

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(lo.Filter(lo.Keys(c.data), func(k string, _ int) bool {
		return strings.HasPrefix(k, pageCachePrefix)
	}))
}

type fakeCounter struct {
	calls int
	err   error
}

func (c *fakeCounter) IncrementMessages(context.Context) error {
	c.calls++
	return c.err
}

func newTestService(repo *fakeRepo, cache *fakeCache, counter Counter) *messageService {
	svc := NewMessageService(repo, cache, counter)
	if cache == nil {
		svc.cache = nil
	}
	seq := 0
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id%03d", seq)
	}
	svc.now = func() time.Time { return base.Add(time.Duration(seq) * time.Second) }
	return svc
}

func TestAppendDerivesRoomAndTrims(t *testing.T) {
	repo := &fakeRepo{}
	counter := &fakeCounter{}
	svc := newTestService(repo, nil, counter)

	msg, err := svc.Append(context.Background(), "a1", "b2", "  hi  ", nil)
	require.NoError(t, err)
	require.Equal(t, "dm:a1:b2", msg.RoomId)
	require.Equal(t, "hi", msg.Text)
	require.Equal(t, "b2", msg.Receiver())
	require.Equal(t, 1, counter.calls)

	global, err := svc.Append(context.Background(), "a1", "", "hello all", nil)
	require.NoError(t, err)
	require.Equal(t, "global", global.RoomId)
	require.Nil(t, global.ReceiverId)
}

func TestAppendImageOnly(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil, nil)
	img := "https://cdn.example.com/x.png"

	msg, err := svc.Append(context.Background(), "a1", "b2", "   ", &img)
	require.NoError(t, err)
	require.Empty(t, msg.Text)
	require.Equal(t, img, *msg.Image)
}

func TestAppendRejectsEmpty(t *testing.T) {
	repo := &fakeRepo{}
	counter := &fakeCounter{}
	svc := newTestService(repo, nil, counter)
	blank := "  "

	for _, tc := range []struct {
		text  string
		image *string
	}{
		{"", nil},
		{" \n\t", nil},
		{"", &blank},
	} {
		_, err := svc.Append(context.Background(), "a1", "b2", tc.text, tc.image)
		require.True(t, errorx.IsValidation(err))
		require.Equal(t, MsgContentRequired, errorx.GetMsg(err, ""))
	}
	require.Empty(t, repo.messages)
	require.Zero(t, counter.calls)
}

func TestAppendSurvivesCounterFailure(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, &fakeCounter{err: errors.New("queue full")})

	msg, err := svc.Append(context.Background(), "a1", "b2", "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Len(t, repo.messages, 1)
}

func TestAppendPropagatesStoreFailure(t *testing.T) {
	repo := &fakeRepo{failNext: errorx.New(errorx.CodeDBError, "down")}
	counter := &fakeCounter{}
	svc := newTestService(repo, nil, counter)

	_, err := svc.Append(context.Background(), "a1", "b2", "hi", nil)
	require.Equal(t, errorx.CodeDBError, errorx.GetCode(err))
	require.Zero(t, counter.calls)
}

func TestPageReturnsOldestToNewest(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := svc.Append(ctx, "a1", "b2", fmt.Sprintf("m%d", i), nil)
		require.NoError(t, err)
	}

	first, err := svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Len(t, first.Messages, 20)
	require.Equal(t, "m5", first.Messages[0].Text)
	require.Equal(t, "m24", first.Messages[19].Text)
	require.EqualValues(t, 25, first.Pagination.Total)
	require.EqualValues(t, 2, first.Pagination.Pages)

	second, err := svc.Page(ctx, "dm:a1:b2", 2, 20)
	require.NoError(t, err)
	require.Len(t, second.Messages, 5)
	require.Equal(t, "m0", second.Messages[0].Text)
	require.Equal(t, "m4", second.Messages[4].Text)

	empty, err := svc.Page(ctx, "dm:x:y", 1, 20)
	require.NoError(t, err)
	require.Empty(t, empty.Messages)
	require.EqualValues(t, 0, empty.Pagination.Pages)

	_, err = svc.Page(ctx, "", 1, 20)
	require.True(t, errorx.IsValidation(err))
}

func TestNormalizePage(t *testing.T) {
	cases := []struct{ page, limit, wantPage, wantLimit int }{
		{0, 0, 1, 20},
		{-3, -5, 1, 1},
		{2, 500, 2, 50},
		{3, 7, 3, 7},
	}
	for _, c := range cases {
		p, l := NormalizePage(c.page, c.limit)
		require.Equal(t, c.wantPage, p)
		require.Equal(t, c.wantLimit, l)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	msg, err := svc.Append(ctx, "a1", "b2", "hi", nil)
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, msg.Uuid, "b2")
	require.NoError(t, err)
	second, err := svc.MarkRead(ctx, msg.Uuid, "b2")
	require.NoError(t, err)

	require.Equal(t, []string{"b2"}, first.ReadBy())
	require.Equal(t, first.ReadBy(), second.ReadBy())
}

func TestMarkReadNotFound(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil, nil)

	_, err := svc.MarkRead(context.Background(), "nope", "b2")
	require.Equal(t, errorx.CodeNotFound, errorx.GetCode(err))
	require.Equal(t, MsgNotFound, errorx.GetMsg(err, ""))

	_, err = svc.MarkRead(context.Background(), "", "b2")
	require.True(t, errorx.IsValidation(err))
}

func TestPageCacheFillAndInvalidate(t *testing.T) {
	repo := &fakeRepo{}
	cache := newFakeCache()
	svc := newTestService(repo, cache, nil)
	ctx := context.Background()

	msg, err := svc.Append(ctx, "a1", "b2", "hi", nil)
	require.NoError(t, err)

	_, err = svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, cache.size())

	// 命中缓存时不再回填
	_, err = svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	_, err = svc.MarkRead(ctx, msg.Uuid, "b2")
	require.NoError(t, err)
	require.Zero(t, cache.size())

	page, err := svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Equal(t, []string{"b2"}, page.Messages[0].ReadBy)

	_, err = svc.Append(ctx, "b2", "a1", "yo", nil)
	require.NoError(t, err)
	require.Zero(t, cache.size())
}

func TestMarkPageRead(t *testing.T) {
	repo := &fakeRepo{}
	cache := newFakeCache()
	svc := newTestService(repo, cache, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, "a1", "b2", fmt.Sprintf("m%d", i), nil)
		require.NoError(t, err)
	}

	page, err := svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.NoError(t, svc.MarkPageRead(ctx, "dm:a1:b2", page.Messages, "b2"))
	require.Zero(t, cache.size())

	page, err = svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	for _, m := range page.Messages {
		require.Equal(t, []string{"b2"}, m.ReadBy)
	}

	// 整页已读时保留缓存
	require.NoError(t, svc.MarkPageRead(ctx, "dm:a1:b2", page.Messages, "b2"))
	require.Equal(t, 1, cache.size())
}

func TestPageCacheDropsPageWrittenAfterAppend(t *testing.T) {
	repo := &fakeRepo{}
	cache := newFakeCache()
	svc := newTestService(repo, cache, nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, "a1", "b2", "first", nil)
	require.NoError(t, err)

	// 查库之后、回填之前有新消息写入
	cache.beforeTask = func() {
		_, err := svc.Append(ctx, "b2", "a1", "second", nil)
		require.NoError(t, err)
	}
	stale, err := svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Len(t, stale.Messages, 1)
	require.Zero(t, cache.size())

	fresh, err := svc.Page(ctx, "dm:a1:b2", 1, 20)
	require.NoError(t, err)
	require.Len(t, fresh.Messages, 2)
	require.Equal(t, 1, cache.size())
}

func TestMarkReadRunsInTransaction(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	msg, err := svc.Append(ctx, "a1", "b2", "hi", nil)
	require.NoError(t, err)

	calls := 0
	svc.WithTransaction(func(ctx context.Context, fn func(repository.MessageRepository) error) error {
		calls++
		return fn(repo)
	})
	_, err = svc.MarkRead(ctx, msg.Uuid, "b2")
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// 事务失败时不返回消息
	svc.WithTransaction(func(context.Context, func(repository.MessageRepository) error) error {
		return errorx.New(errorx.CodeDBError, "tx aborted")
	})
	_, err = svc.MarkRead(ctx, msg.Uuid, "c3")
	require.Equal(t, errorx.CodeDBError, errorx.GetCode(err))
}
