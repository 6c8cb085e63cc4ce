package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/logger"
	"github.com/dujiao-next/promo-engine/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 200
)

// dirtyRuleRefresher 批量重算仍标记为待重算的规则
type dirtyRuleRefresher interface {
	RefreshDirtyRules(limit int) (int, error)
}

// dirtyRuleSweeper 兜底重算入队失败或执行失败后遗留的脏规则
type dirtyRuleSweeper struct {
	refresher dirtyRuleRefresher
	interval  time.Duration
	batch     int
}

func newDirtyRuleSweeper(refresher dirtyRuleRefresher, cfg *config.QueueConfig) *dirtyRuleSweeper {
	sweeper := &dirtyRuleSweeper{refresher: refresher, interval: defaultSweepInterval, batch: defaultSweepBatch}
	if cfg.SweepIntervalSeconds > 0 {
		sweeper.interval = time.Duration(cfg.SweepIntervalSeconds) * time.Second
	}
	if cfg.SweepBatch > 0 {
		sweeper.batch = cfg.SweepBatch
	}
	return sweeper
}

func (s *dirtyRuleSweeper) sweep() int {
	done, err := s.refresher.RefreshDirtyRules(s.batch)
	if err != nil {
		logger.Warnw("worker_dirty_rule_sweep_failed", "refreshed", done, "error", err)
		return done
	}
	if done > 0 {
		logger.Infow("worker_dirty_rule_sweep_done", "refreshed", done)
	}
	return done
}

// run 立即扫描一次，之后按间隔扫描直到 ctx 结束
func (s *dirtyRuleSweeper) run(ctx context.Context) {
	s.sweep()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Service 规则重算 worker：asynq 消费者加脏规则兜底扫描
type Service struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper *dirtyRuleSweeper
	swept   chan struct{}
}

// NewService 创建 worker，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{server: asynq.NewServer(opt, serverCfg), mux: mux, swept: make(chan struct{})}
	if consumer.Container != nil && consumer.PromotionService != nil {
		svc.sweeper = newDirtyRuleSweeper(consumer.PromotionService, cfg)
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费者与兜底扫描，阻塞到 ctx 结束；信号由 app.Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		close(s.swept)
		return nil
	}
	if err := s.server.Start(s.mux); err != nil {
		close(s.swept)
		return err
	}
	go func() {
		defer close(s.swept)
		if s.sweeper != nil {
			s.sweeper.run(ctx)
		}
	}()
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束后关闭消费者，并等待扫描协程退出
func (s *Service) Stop(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-s.swept:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
