// Package analytics 维护按天聚合的实时统计
// 写操作通过 Worker Pool 异步执行，调用方不会被数据库阻塞
package analytics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat_gateway/internal/dao/mysql/repository"
	"chat_gateway/internal/dto/respond"
	"chat_gateway/pkg/constants"
	"chat_gateway/pkg/errorx"
	"chat_gateway/pkg/util/roomkey"
)

// ErrQueueFull 任务队列已满，本次计数被丢弃
var ErrQueueFull = errorx.New(errorx.CodeTransportError, "analytics queue full")

// ErrClosed 服务已关闭
var ErrClosed = errorx.New(errorx.CodeTransportError, "analytics service closed")

// Notifier 统计更新后的广播出口，由网关实现
type Notifier interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

// analyticsService 统计服务
type analyticsService struct {
	repo repository.AnalyticsRepository

	mu       sync.RWMutex
	notifier Notifier
	closed   bool

	tasks chan func(ctx context.Context)
	wg    sync.WaitGroup

	taskTimeout time.Duration
	now         func() time.Time
}

// NewAnalyticsService 创建统计服务并启动 workerNum 个后台 Worker
func NewAnalyticsService(repo repository.AnalyticsRepository, workerNum, bufferSize int) *analyticsService {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = constants.CHANNEL_SIZE
	}
	s := &analyticsService{
		repo:        repo,
		tasks:       make(chan func(ctx context.Context), bufferSize),
		taskTimeout: 3 * time.Second,
		now:         time.Now,
	}
	for i := 0; i < workerNum; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	zap.L().Info("Analytics workers started", zap.Int("workers", workerNum), zap.Int("buffer", bufferSize))
	return s
}

// SetNotifier 注入广播出口（网关启动后调用）
func (s *analyticsService) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func (s *analyticsService) worker() {
	defer s.wg.Done()
	for task := range s.tasks {
		s.run(task)
	}
}

func (s *analyticsService) run(task func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("Analytics worker panic", zap.Any("recover", rec))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()
	task(ctx)
}

// submit 非阻塞入队，队列满时丢弃并返回 ErrQueueFull
func (s *analyticsService) submit(task func(ctx context.Context)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.tasks <- task:
		return nil
	default:
		zap.L().Warn("analytics task channel full, dropping update")
		return ErrQueueFull
	}
}

func (s *analyticsService) today() string {
	return s.now().UTC().Format(constants.ANALYTICS_DAY_LAYOUT)
}

// IncrementMessages 当天消息数 +1
func (s *analyticsService) IncrementMessages(_ context.Context) error {
	day := s.today()
	return s.submit(func(ctx context.Context) {
		if err := s.repo.IncrementMessages(ctx, day, 1); err != nil {
			zap.L().Error("increment total messages failed", zap.String("day", day), zap.Error(err))
			return
		}
		s.notify(ctx, day)
	})
}

// SetActiveUsers 覆盖当天的在线人数
func (s *analyticsService) SetActiveUsers(_ context.Context, count int) error {
	if count < 0 {
		return errorx.New(errorx.CodeInvalidParam, "count must be a non-negative number")
	}
	day := s.today()
	return s.submit(func(ctx context.Context) {
		if err := s.repo.SetActiveUsers(ctx, day, int64(count)); err != nil {
			zap.L().Error("set active users failed", zap.String("day", day), zap.Error(err))
			return
		}
		s.notify(ctx, day)
	})
}

// Today 查询当天统计，尚无数据时返回全 0
func (s *analyticsService) Today(ctx context.Context) (*respond.AnalyticsRespond, error) {
	day := s.today()
	row, err := s.repo.FindByDay(ctx, day)
	if err != nil {
		if errorx.IsNotFound(err) {
			return &respond.AnalyticsRespond{Date: day}, nil
		}
		return nil, err
	}
	rsp := respond.NewAnalyticsRespond(row)
	return &rsp, nil
}

// Range 查询日期区间内的统计，日期格式 2006-01-02，空字符串表示不限
func (s *analyticsService) Range(ctx context.Context, startDate, endDate string) ([]respond.AnalyticsRespond, error) {
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(constants.ANALYTICS_DAY_LAYOUT, d); err != nil {
			return nil, errorx.Wrapf(err, errorx.CodeInvalidParam, "invalid date %q", d)
		}
	}
	if startDate != "" && endDate != "" && startDate > endDate {
		return nil, errorx.New(errorx.CodeInvalidParam, "startDate must not be after endDate")
	}
	rows, err := s.repo.FindRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return respond.NewAnalyticsRespondList(rows), nil
}

// notify 读取当天最新统计并广播 analytics:update，失败只记日志
func (s *analyticsService) notify(ctx context.Context, day string) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n == nil {
		return
	}
	row, err := s.repo.FindByDay(ctx, day)
	if err != nil {
		zap.L().Warn("load analytics snapshot failed", zap.String("day", day), zap.Error(err))
		return
	}
	if err := n.Publish(ctx, roomkey.Global, constants.EVENT_ANALYTICS_UPDATE, respond.NewAnalyticsRespond(row)); err != nil {
		zap.L().Warn("publish analytics update failed", zap.Error(err))
	}
}

// Close 停止接收新任务，等待队列中的任务执行完
func (s *analyticsService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()
	s.wg.Wait()
}
