package app

import (
	"context"
	"fmt"
	"io"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/lock"
	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/sync"
)

// App wires configuration, connections and the run guard into sync runs.
type App struct {
	ctx      context.Context
	settings connection.SyncSettings
	sink     sync.ProgressSink
	guard    lock.Guard
	registry *sync.TableRegistry
}

// NewApp creates a new App from validated settings. sink may be nil.
func NewApp(settings connection.SyncSettings, sink sync.ProgressSink) *App {
	return &App{
		ctx:      context.Background(),
		settings: settings,
		sink:     sink,
	}
}

// Startup builds the table registry and the run guard. The context is kept
// for every later run.
func (a *App) Startup(ctx context.Context) error {
	a.ctx = ctx

	registry := sync.DefaultTableRegistry()
	if len(a.settings.Tables) > 0 {
		deps := a.settings.Dependencies
		if deps == nil {
			deps = sync.DefaultDependencies
		}
		r, err := sync.NewTableRegistry(a.settings.Tables, deps)
		if err != nil {
			return fmt.Errorf("表顺序配置无效：%w", err)
		}
		registry = r
	}
	a.registry = registry

	guard, err := lock.New(a.settings.Lock)
	if err != nil {
		return fmt.Errorf("初始化同步锁失败：%w", err)
	}
	a.guard = guard
	logger.Infof("应用启动完成：表数量=%d 批量大小=%d 锁=%s", registry.Len(), a.settings.BatchSize, a.settings.Lock.Backend)
	return nil
}

// Shutdown is called when the app terminates
func (a *App) Shutdown() {
	if c, ok := a.guard.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warnf("关闭同步锁失败：%v", err)
		}
	}
	logger.Close()
}

func (a *App) engine() *sync.SyncEngine {
	return sync.NewSyncEngine(a,
		sync.WithRegistry(a.registry),
		sync.WithSink(a.sink),
		sync.WithBatchSize(a.settings.BatchSize),
		sync.WithRunGuard(a.guard),
	)
}
