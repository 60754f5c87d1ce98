package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/LENAX/dependent-engine/pkg/core/depend"
	"github.com/LENAX/dependent-engine/pkg/core/events"
)

var (
	// ErrWatchNotFound 监听不存在
	ErrWatchNotFound = errors.New("依赖监听不存在")
	// ErrWatchFinished 监听已结束
	ErrWatchFinished = errors.New("依赖监听已结束")
)

// WatchState 依赖监听状态
type WatchState string

const (
	WatchStateWatching  WatchState = "WATCHING"  // 轮询中
	WatchStateFinished  WatchState = "FINISHED"  // 依赖检查已得到终态
	WatchStateTimedOut  WatchState = "TIMED_OUT" // 超时，结果为失败
	WatchStateCancelled WatchState = "CANCELLED" // 已取消
)

// IsTerminal 是否为终态
func (s WatchState) IsTerminal() bool {
	return s != WatchStateWatching
}

// WatchOptions 依赖监听选项
type WatchOptions struct {
	Name         string
	BusinessDate time.Time     // 每次轮询使用的业务日期，为零值时取注册时间
	PollInterval time.Duration // 为零值时使用监听器默认间隔
	Timeout      time.Duration // 为零值时不超时
	OnFinish     func(info *WatchInfo)
}

// WatchInfo 依赖监听快照
type WatchInfo struct {
	ID           string                         `json:"id"`
	Name         string                         `json:"name"`
	State        WatchState                     `json:"state"`
	Result       depend.DependResult            `json:"result"`
	BusinessDate time.Time                      `json:"business_date"`
	PollInterval time.Duration                  `json:"poll_interval"`
	Timeout      time.Duration                  `json:"timeout"`
	RegisteredAt time.Time                      `json:"registered_at"`
	LastPollAt   *time.Time                     `json:"last_poll_at,omitempty"`
	FinishedAt   *time.Time                     `json:"finished_at,omitempty"`
	Polls        int                            `json:"polls"`
	LastError    string                         `json:"last_error,omitempty"`
	Items        map[string]depend.DependResult `json:"items"`
	ModelResults []depend.DependResult          `json:"model_results"`
}

// watch 单个依赖监听（内部）
type watch struct {
	id      string
	opts    WatchOptions
	task    *depend.DependentTask
	entryID cron.EntryID

	polling atomic.Bool

	mu           sync.Mutex
	state        WatchState
	registeredAt time.Time
	lastPollAt   *time.Time
	finishedAt   *time.Time
	polls        int
	lastError    string
}

// DependentWatcher 依赖监听器：按固定间隔轮询已注册的依赖任务直到得到终态（对外导出）
type DependentWatcher struct {
	cron            *cron.Cron
	publisher       events.Publisher
	defaultInterval time.Duration
	watches         map[string]*watch
	mu              sync.RWMutex
	ctx             context.Context
	cancel          context.CancelFunc
	started         bool
}

// WatcherOption 监听器选项
type WatcherOption func(*DependentWatcher)

// WithPublisher 设置事件发布者
func WithPublisher(p events.Publisher) WatcherOption {
	return func(w *DependentWatcher) {
		w.publisher = p
	}
}

// WithDefaultPollInterval 设置默认轮询间隔
func WithDefaultPollInterval(interval time.Duration) WatcherOption {
	return func(w *DependentWatcher) {
		if interval > 0 {
			w.defaultInterval = interval
		}
	}
}

// NewDependentWatcher 创建依赖监听器（对外导出）
func NewDependentWatcher(opts ...WatcherOption) *DependentWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))
	w := &DependentWatcher{
		cron: cron.New(
			cron.WithSeconds(), // 支持秒级精度
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		defaultInterval: 30 * time.Second,
		watches:         make(map[string]*watch),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch 注册依赖任务，返回监听ID（对外导出）
func (w *DependentWatcher) Watch(task *depend.DependentTask, opts WatchOptions) (string, error) {
	if task == nil {
		return "", fmt.Errorf("依赖任务不能为空")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = w.defaultInterval
	}
	if opts.PollInterval < time.Second {
		return "", fmt.Errorf("轮询间隔不能小于1s: %s", opts.PollInterval)
	}
	if opts.Timeout < 0 {
		return "", fmt.Errorf("超时时间不能为负数: %s", opts.Timeout)
	}

	now := time.Now()
	if opts.BusinessDate.IsZero() {
		opts.BusinessDate = now
	}
	wt := &watch{
		id:           uuid.NewString(),
		opts:         opts,
		task:         task,
		state:        WatchStateWatching,
		registeredAt: now,
	}
	if wt.opts.Name == "" {
		wt.opts.Name = wt.id
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entryID, err := w.cron.AddFunc(fmt.Sprintf("@every %s", opts.PollInterval), func() {
		w.poll(wt)
	})
	if err != nil {
		return "", fmt.Errorf("添加轮询任务失败: %w", err)
	}
	wt.entryID = entryID
	w.watches[wt.id] = wt

	log.Printf("✅ [依赖监听] 已注册依赖监听: ID=%s, Name=%s, BusinessDate=%s, Interval=%s, Timeout=%s",
		wt.id, wt.opts.Name, opts.BusinessDate.Format(time.DateTime), opts.PollInterval, opts.Timeout)

	// 已启动时立即轮询一次，不必等到第一个间隔
	if w.started {
		go w.poll(wt)
	}
	return wt.id, nil
}

// PollNow 立即轮询一次指定监听（对外导出）
func (w *DependentWatcher) PollNow(id string) error {
	wt, err := w.lookup(id)
	if err != nil {
		return err
	}
	w.poll(wt)
	return nil
}

// Cancel 取消依赖监听（对外导出）
func (w *DependentWatcher) Cancel(id string) error {
	wt, err := w.lookup(id)
	if err != nil {
		return err
	}

	wt.mu.Lock()
	if wt.state.IsTerminal() {
		wt.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWatchFinished, id)
	}
	now := time.Now()
	wt.state = WatchStateCancelled
	wt.finishedAt = &now
	wt.mu.Unlock()

	w.cron.Remove(wt.entryID)
	log.Printf("✅ [依赖监听] 已取消依赖监听: ID=%s, Name=%s", id, wt.opts.Name)
	return nil
}

// Get 获取依赖监听快照（对外导出）
func (w *DependentWatcher) Get(id string) (*WatchInfo, error) {
	wt, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	return wt.info(), nil
}

// List 获取所有依赖监听快照，按注册时间排序（对外导出）
func (w *DependentWatcher) List() []*WatchInfo {
	w.mu.RLock()
	watches := make([]*watch, 0, len(w.watches))
	for _, wt := range w.watches {
		watches = append(watches, wt)
	}
	w.mu.RUnlock()

	infos := make([]*WatchInfo, 0, len(watches))
	for _, wt := range watches {
		infos = append(infos, wt.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].RegisteredAt.Equal(infos[j].RegisteredAt) {
			return infos[i].RegisteredAt.Before(infos[j].RegisteredAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Start 启动依赖监听器，并立即轮询一次所有未结束的监听（对外导出）
func (w *DependentWatcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	pending := make([]*watch, 0, len(w.watches))
	for _, wt := range w.watches {
		pending = append(pending, wt)
	}
	w.mu.Unlock()

	w.cron.Start()
	for _, wt := range pending {
		go w.poll(wt)
	}
	log.Println("✅ [依赖监听] 已启动")
}

// Stop 停止依赖监听器，等待正在进行的轮询结束（对外导出）
func (w *DependentWatcher) Stop() {
	w.mu.Lock()
	w.started = false
	w.mu.Unlock()

	<-w.cron.Stop().Done()

	// 取消进行中的查询，并为之后的Start/PollNow准备新的上下文
	w.mu.Lock()
	w.cancel()
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()
	log.Println("✅ [依赖监听] 已停止")
}

// runContext 当前轮询使用的上下文
func (w *DependentWatcher) runContext() context.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctx
}

// lookup 按ID查找监听
func (w *DependentWatcher) lookup(id string) (*watch, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	wt, ok := w.watches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWatchNotFound, id)
	}
	return wt, nil
}

// poll 轮询一次（内部方法），同一监听的轮询不会重叠
func (w *DependentWatcher) poll(wt *watch) {
	if !wt.polling.CompareAndSwap(false, true) {
		return
	}
	defer wt.polling.Store(false)

	wt.mu.Lock()
	if wt.state.IsTerminal() {
		wt.mu.Unlock()
		return
	}
	now := time.Now()
	if wt.opts.Timeout > 0 && now.Sub(wt.registeredAt) >= wt.opts.Timeout {
		wt.mu.Unlock()
		w.timeout(wt, now)
		return
	}
	wt.mu.Unlock()

	finished, err := wt.task.Poll(w.runContext(), wt.opts.BusinessDate)

	wt.mu.Lock()
	pollAt := time.Now()
	wt.lastPollAt = &pollAt
	wt.polls++
	polls := wt.polls
	if err != nil {
		wt.lastError = err.Error()
		wt.mu.Unlock()
		log.Printf("❌ [依赖监听] 轮询失败: ID=%s, Name=%s, Polls=%d, Error=%v", wt.id, wt.opts.Name, polls, err)
		w.publish(wt, events.NewDependentEvent(events.EventPollFailed, wt.id, wt.opts.Name,
			&events.PollFailedPayload{Error: err.Error(), Polls: polls}))
		return
	}
	wt.lastError = ""
	// 已被取消的监听不再改变状态
	if finished && wt.state == WatchStateWatching {
		wt.state = WatchStateFinished
		wt.finishedAt = &pollAt
	} else {
		finished = false
	}
	wt.mu.Unlock()

	for key, result := range wt.task.NewlyResolved() {
		log.Printf("🔎 [依赖监听] 依赖项已得到结果: ID=%s, Item=%s, Result=%s", wt.id, key, result)
		w.publish(wt, events.NewDependentEvent(events.EventItemResolved, wt.id, wt.opts.Name,
			&events.ItemResolvedPayload{ItemKey: key, Result: string(result)}))
	}

	if !finished {
		return
	}

	w.cron.Remove(wt.entryID)
	info := wt.info()
	log.Printf("✅ [依赖监听] 依赖检查结束: ID=%s, Name=%s, Result=%s, Polls=%d", wt.id, wt.opts.Name, info.Result, polls)
	w.publish(wt, events.NewDependentEvent(events.EventFinished, wt.id, wt.opts.Name, &events.FinishedPayload{
		Result:   string(info.Result),
		Items:    resultsToStrings(info.Items),
		Polls:    polls,
		Duration: pollAt.Sub(info.RegisteredAt),
	}))
	if wt.opts.OnFinish != nil {
		wt.opts.OnFinish(info)
	}
}

// timeout 超时结束（内部方法）
func (w *DependentWatcher) timeout(wt *watch, now time.Time) {
	wt.mu.Lock()
	if wt.state.IsTerminal() {
		wt.mu.Unlock()
		return
	}
	wt.state = WatchStateTimedOut
	wt.finishedAt = &now
	wt.mu.Unlock()

	w.cron.Remove(wt.entryID)
	info := wt.info()
	log.Printf("⏰ [依赖监听] 依赖检查超时: ID=%s, Name=%s, Timeout=%s", wt.id, wt.opts.Name, wt.opts.Timeout)
	w.publish(wt, events.NewDependentEvent(events.EventTimeout, wt.id, wt.opts.Name, &events.TimeoutPayload{
		Timeout: wt.opts.Timeout,
		Items:   resultsToStrings(info.Items),
	}))
	if wt.opts.OnFinish != nil {
		wt.opts.OnFinish(info)
	}
}

// publish 发布事件，失败只记录日志
func (w *DependentWatcher) publish(wt *watch, event *events.DependentEvent) {
	if w.publisher == nil {
		return
	}
	event.WithMetadata("business_date", wt.opts.BusinessDate.Format(time.DateTime))
	if err := w.publisher.Publish(w.runContext(), event); err != nil {
		log.Printf("⚠️ [依赖监听] 发布事件失败: Type=%s, WatchID=%s, Error=%v", event.Type, event.WatchID, err)
	}
}

// info 生成快照
func (wt *watch) info() *WatchInfo {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	result := wt.task.Result()
	if wt.state == WatchStateTimedOut {
		result = depend.DependResultFailed
	}
	return &WatchInfo{
		ID:           wt.id,
		Name:         wt.opts.Name,
		State:        wt.state,
		Result:       result,
		BusinessDate: wt.opts.BusinessDate,
		PollInterval: wt.opts.PollInterval,
		Timeout:      wt.opts.Timeout,
		RegisteredAt: wt.registeredAt,
		LastPollAt:   copyTime(wt.lastPollAt),
		FinishedAt:   copyTime(wt.finishedAt),
		Polls:        wt.polls,
		LastError:    wt.lastError,
		Items:        wt.task.Snapshot(),
		ModelResults: wt.task.ModelResults(),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func resultsToStrings(results map[string]depend.DependResult) map[string]string {
	out := make(map[string]string, len(results))
	for k, v := range results {
		out[k] = string(v)
	}
	return out
}
