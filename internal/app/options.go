package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dujiao-next/promo-engine/internal/config"
	"github.com/dujiao-next/promo-engine/internal/logger"

	"go.uber.org/zap"
)

// 启动模式
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Mode 决定进程内运行哪些服务
type Mode string

// ParseMode 解析启动模式，空值视为 all
func ParseMode(raw string) (Mode, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return Mode(mode), nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

func (m Mode) servesAPI() bool {
	return m == ModeAll || m == ModeAPI
}

// runsWorker worker 模式总是启动消费者；all 模式仅在队列启用时启动
func (m Mode) runsWorker(queueEnabled bool) bool {
	return m == ModeWorker || (m == ModeAll && queueEnabled)
}

// Options 应用启动选项
type Options struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	Signals []os.Signal
	Mode    string
	// ShutdownTimeout 为空时取 server.shutdown_timeout_seconds
	ShutdownTimeout time.Duration
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 && opts.Config != nil && opts.Config.Server.ShutdownTimeoutSeconds > 0 {
		opts.ShutdownTimeout = time.Duration(opts.Config.Server.ShutdownTimeoutSeconds) * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultStopBudget
	}
	return opts
}
