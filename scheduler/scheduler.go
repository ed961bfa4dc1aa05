package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"interest_cluster/config"
	"interest_cluster/logger"
	"interest_cluster/services"
)

// ErrAlreadyRunning 上一轮批量聚类尚未结束
var ErrAlreadyRunning = errors.New("batch clustering already running")

// BatchRunner 批量聚类入口，由 services.ClusterService 实现
type BatchRunner interface {
	AnalyzePendingUsers(ctx context.Context, limit, concurrency int) (services.BatchStats, error)
}

// 任务状态
type TaskStatus struct {
	LastRun     time.Time
	NextRun     time.Time
	IsRunning   bool
	Description string
	LastStats   services.BatchStats
	LastError   string
}

// 任务调度器
type Scheduler struct {
	cfg         *config.Config
	runner      BatchRunner
	cron        *cron.Cron
	entry       cron.EntryID
	concurrency int
	limit       int
	status      TaskStatus
	mutex       sync.Mutex
	now         func() time.Time
}

// 创建新的调度器
func NewScheduler(cfg *config.Config, runner BatchRunner) *Scheduler {
	concurrency := cfg.Scheduler.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	limit := cfg.Scheduler.BatchLimit
	if limit <= 0 {
		limit = 200
	}

	cl := cronLogger{}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		// 防止上一轮未结束时重复执行
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		concurrency: concurrency,
		limit:       limit,
		status: TaskStatus{
			Description: fmt.Sprintf("批量兴趣聚类 (%s)", cfg.Scheduler.Spec),
		},
		now: time.Now,
	}
}

// Start 注册定时任务并启动，ctx 结束时自动停止
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cfg.Scheduler.Spec, func() {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			logger.Error("定时聚类任务执行失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entry = id
	s.cron.Start()

	logger.Info("调度器已启动",
		"spec", s.cfg.Scheduler.Spec,
		"concurrency", s.concurrency,
		"batch_limit", s.limit,
		"next_run", s.cron.Entry(id).Next.Format("2006-01-02 15:04:05"))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("调度器已停止")
}

// RunOnce 执行一轮批量聚类，也可由接口手动触发
func (s *Scheduler) RunOnce(ctx context.Context) (services.BatchStats, error) {
	s.mutex.Lock()
	if s.status.IsRunning {
		s.mutex.Unlock()
		logger.Warn("任务正在运行，跳过本次执行", "task", s.status.Description)
		return services.BatchStats{}, ErrAlreadyRunning
	}
	s.status.IsRunning = true
	s.mutex.Unlock()

	start := s.now()
	logger.Info("开始执行任务", "task", s.status.Description)

	stats, err := s.runner.AnalyzePendingUsers(ctx, s.limit, s.concurrency)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.status.IsRunning = false
	s.status.LastRun = start
	s.status.LastStats = stats
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}

	logger.Info("任务执行完成",
		"task", s.status.Description,
		"duration_ms", s.now().Sub(start).Milliseconds(),
		"processed", stats.Processed,
		"failed", stats.Failed)
	return stats, err
}

// Status 返回任务状态快照
func (s *Scheduler) Status() TaskStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	st := s.status
	if s.entry != 0 {
		st.NextRun = s.cron.Entry(s.entry).Next
	}
	return st
}

// cronLogger 将 cron 内部日志转到 slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
