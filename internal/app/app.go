package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internalstorage "github.com/LENAX/dependent-engine/internal/storage"
	"github.com/LENAX/dependent-engine/pkg/api"
	"github.com/LENAX/dependent-engine/pkg/config"
	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/depend"
	"github.com/LENAX/dependent-engine/pkg/core/engine"
	"github.com/LENAX/dependent-engine/pkg/core/events"
	"github.com/LENAX/dependent-engine/pkg/storage"
)

// App 依赖检查服务：执行历史存储、事件总线、依赖监听器与诊断API的组合
type App struct {
	cfg       *config.EngineConfig
	version   string
	factory   internalstorage.RepositoryFactory
	bus       *events.EventBus
	watcher   *engine.DependentWatcher
	resolver  dateutil.IntervalResolver
	evaluator *depend.ItemEvaluator
	apiServer *api.APIServer

	mu       sync.Mutex
	watchIDs map[string]string // 声明名称 -> 监听ID
	cancel   context.CancelFunc
	group    *errgroup.Group
	started  bool
}

// New 根据配置创建服务并注册配置中的依赖声明
func New(cfg *config.EngineConfig, version string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	db := cfg.DependentEngine.Storage.Database
	factory, err := internalstorage.NewRepositoryFactory(cfg.GetDatabaseType(), cfg.GetDatabaseDSN(), internalstorage.PoolConfig{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	debug := cfg.DependentEngine.General.LogLevel == "debug"
	bus := events.NewEventBus(events.WithDebugLog(debug, false))
	resolver := dateutil.NewDefaultResolver()

	a := &App{
		cfg:       cfg,
		version:   version,
		factory:   factory,
		bus:       bus,
		resolver:  resolver,
		evaluator: depend.NewItemEvaluator(resolver, factory.HistoryRepository()),
		watcher: engine.NewDependentWatcher(
			engine.WithPublisher(bus),
			engine.WithDefaultPollInterval(cfg.GetPollInterval()),
		),
		watchIDs: make(map[string]string),
	}

	for _, def := range cfg.DependentEngine.Dependent.Declarations {
		if _, err := a.Register(def); err != nil {
			a.close()
			return nil, err
		}
	}

	if cfg.IsAPIEnabled() {
		apiCfg := cfg.DependentEngine.API
		a.apiServer = api.NewAPIServer(a.watcher, api.ServerConfig{
			Host:         apiCfg.Host,
			Port:         apiCfg.Port,
			ReadTimeout:  apiCfg.ReadTimeout,
			WriteTimeout: apiCfg.WriteTimeout,
		}, version, a.Ready)
	}
	return a, nil
}

// Register 注册一个依赖声明，返回监听ID
func (a *App) Register(def config.WatchDefinition) (string, error) {
	decl := def.Spec
	if def.File != "" {
		loaded, err := config.LoadDependentConfig(def.File)
		if err != nil {
			return "", fmt.Errorf("依赖声明 %s: %w", def.Name, err)
		}
		decl = loaded
	}
	if decl == nil {
		return "", fmt.Errorf("依赖声明 %s: 未指定file或spec", def.Name)
	}
	decl.ApplyDefaults()

	params, err := decl.ToParameters(a.resolver)
	if err != nil {
		return "", fmt.Errorf("依赖声明 %s: %w", def.Name, err)
	}
	task, err := depend.NewDependentTask(params, a.evaluator)
	if err != nil {
		return "", fmt.Errorf("依赖声明 %s: %w", def.Name, err)
	}

	var businessDate time.Time
	if def.Date != "" {
		businessDate, err = time.ParseInLocation(time.DateOnly, def.Date, time.Local)
		if err != nil {
			return "", fmt.Errorf("依赖声明 %s: 无效的业务日期 %s: %w", def.Name, def.Date, err)
		}
	}

	id, err := a.watcher.Watch(task, engine.WatchOptions{
		Name:         def.Name,
		BusinessDate: businessDate,
		PollInterval: def.PollInterval,
		Timeout:      def.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("依赖声明 %s: %w", def.Name, err)
	}

	a.mu.Lock()
	a.watchIDs[def.Name] = id
	a.mu.Unlock()
	return id, nil
}

// Start 启动事件日志、依赖监听器与诊断API
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	group := &errgroup.Group{}
	for _, eventType := range events.AllEventTypes() {
		ch, err := a.bus.Subscribe(subCtx, eventType)
		if err != nil {
			cancel()
			return err
		}
		group.Go(func() error {
			a.logEvents(ch)
			return nil
		})
	}
	a.cancel = cancel
	a.group = group

	a.watcher.Start()

	if a.apiServer != nil {
		group.Go(func() error {
			if err := a.apiServer.Start(); err != nil {
				log.Printf("❌ [API] 诊断服务异常退出: %v", err)
				return err
			}
			return nil
		})
	}

	a.started = true
	log.Printf("✅ [依赖检查服务] 已启动: Instance=%s, Version=%s, Declarations=%d",
		a.cfg.DependentEngine.General.InstanceName, a.version, len(a.watchIDs))
	return nil
}

// Stop 优雅关闭，ctx控制API关闭的最长等待时间
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	started := a.started
	a.started = false
	a.mu.Unlock()

	var errs []error
	if started && a.apiServer != nil {
		if err := a.apiServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.watcher.Stop()
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	if a.group != nil {
		if err := a.group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}

	log.Println("✅ [依赖检查服务] 已停止")
	return errors.Join(errs...)
}

// Ready 就绪检查：执行历史存储可用
func (a *App) Ready(ctx context.Context) error {
	return a.factory.Ping()
}

// Watcher 返回依赖监听器
func (a *App) Watcher() *engine.DependentWatcher {
	return a.watcher
}

// Bus 返回事件总线
func (a *App) Bus() *events.EventBus {
	return a.bus
}

// History 返回执行历史Repository
func (a *App) History() storage.ProcessHistoryRepository {
	return a.factory.HistoryRepository()
}

// WatchID 按声明名称查找监听ID
func (a *App) WatchID(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.watchIDs[name]
	return id, ok
}

func (a *App) close() error {
	return errors.Join(a.bus.Close(), a.factory.Close())
}

// logEvents 记录总线上的依赖事件
func (a *App) logEvents(ch <-chan *events.DependentEvent) {
	for event := range ch {
		switch event.Type {
		case events.EventFinished:
			var payload events.FinishedPayload
			if err := event.DecodePayload(&payload); err == nil {
				log.Printf("📣 [事件] 依赖检查结束: Name=%s, Result=%s, Polls=%d, Duration=%s",
					event.Name, payload.Result, payload.Polls, payload.Duration)
				continue
			}
		case events.EventTimeout:
			log.Printf("⏰ [事件] 依赖检查超时: Name=%s, WatchID=%s", event.Name, event.WatchID)
			continue
		}
		log.Printf("📣 [事件] %s: Name=%s, WatchID=%s", event.Type, event.Name, event.WatchID)
	}
}
