package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	errNoServices     = errors.New("no services to run")
	errServiceExited  = errors.New("service exited")
	errStopTimeout    = errors.New("services did not exit before shutdown timeout")
	defaultStopBudget = 10 * time.Second
)

// Service 可独立启停的后台服务（员工端 HTTP、规则重算 worker）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器
type Runner struct {
	services  []Service
	shutdowns []func()
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnShutdown 注册全部服务停止后执行的清理函数，按注册的逆序执行
func (r *Runner) OnShutdown(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.shutdowns = append(r.shutdowns, fn)
}

// Run 并发启动全部服务。ctx 取消或任一服务退出后，按启动逆序停止其余服务，
// 再执行清理函数。返回首个导致退出的启动错误；正常退出时返回停止阶段的错误。
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errNoServices
	}
	for idx, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service #%d is nil", idx)
		}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if stopTimeout <= 0 {
		stopTimeout = defaultStopBudget
	}
	defer r.runShutdowns()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, svc := range r.services {
		group.Go(func() error {
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(groupCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			if err != nil {
				return fmt.Errorf("%s: %w", svc.Name(), err)
			}
			return errServiceExited
		})
	}

	<-groupCtx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	stopErr := r.stopAll(stopCtx, log)

	waitCh := make(chan error, 1)
	go func() { waitCh <- group.Wait() }()
	var runErr error
	select {
	case runErr = <-waitCh:
	case <-stopCtx.Done():
		log.Warnw("service_exit_timeout", "timeout", stopTimeout)
		return errors.Join(stopErr, errStopTimeout)
	}

	if errors.Is(runErr, errServiceExited) || errors.Is(runErr, context.Canceled) {
		return stopErr
	}
	return runErr
}

func (r *Runner) stopAll(ctx context.Context, log *zap.SugaredLogger) error {
	var errs []error
	for idx := len(r.services) - 1; idx >= 0; idx-- {
		svc := r.services[idx]
		if err := svc.Stop(ctx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) runShutdowns() {
	for idx := len(r.shutdowns) - 1; idx >= 0; idx-- {
		r.shutdowns[idx]()
	}
}
