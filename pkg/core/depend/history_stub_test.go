package depend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/types"
	"github.com/LENAX/dependent-engine/pkg/storage"
	"github.com/LENAX/dependent-engine/pkg/storage/memory"
)

// 基准时间：2026-10-21（周三）14:30:15 UTC
var testNow = time.Date(2026, 10, 21, 14, 30, 15, 0, time.UTC)

var errStoreDown = errors.New("store down")

// countingHistory 记录查询次数并支持注入故障的历史存储
type countingHistory struct {
	mu    sync.Mutex
	inner *memory.HistoryRepo
	calls map[string]int
	fail  map[string]error
}

func newCountingHistory() *countingHistory {
	return &countingHistory{
		inner: memory.NewHistoryRepo(),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (h *countingHistory) record(method string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[method]++
	return h.fail[method]
}

func (h *countingHistory) failOn(method string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.fail, method)
		return
	}
	h.fail[method] = err
}

func (h *countingHistory) count(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[method]
}

func (h *countingHistory) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		n += c
	}
	return n
}

func (h *countingHistory) FindLastRunningProcess(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	if err := h.record("running"); err != nil {
		return nil, err
	}
	return h.inner.FindLastRunningProcess(ctx, definitionID, interval)
}

func (h *countingHistory) FindLastSchedulerProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	if err := h.record("scheduler"); err != nil {
		return nil, err
	}
	return h.inner.FindLastSchedulerProcessInterval(ctx, definitionID, interval)
}

func (h *countingHistory) FindLastManualProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	if err := h.record("manual"); err != nil {
		return nil, err
	}
	return h.inner.FindLastManualProcessInterval(ctx, definitionID, interval)
}

func (h *countingHistory) FindValidTaskListByProcessID(ctx context.Context, processInstanceID int64) ([]*storage.TaskInstance, error) {
	if err := h.record("tasks"); err != nil {
		return nil, err
	}
	return h.inner.FindValidTaskListByProcessID(ctx, processInstanceID)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// saveScheduled 保存一个定时调度的流程实例，endTime为零值表示未结束
func saveScheduled(t *testing.T, h *countingHistory, id, definitionID int64, state types.ExecutionStatus, scheduleTime, endTime time.Time) *storage.ProcessInstance {
	t.Helper()
	inst := &storage.ProcessInstance{
		ID:                  id,
		ProcessDefinitionID: definitionID,
		Name:                "wf",
		State:               state,
		RunMode:             types.RunModeScheduler,
		ScheduleTime:        timePtr(scheduleTime),
		StartTime:           scheduleTime,
	}
	if !endTime.IsZero() {
		inst.EndTime = timePtr(endTime)
	}
	require.NoError(t, h.inner.SaveProcessInstance(context.Background(), inst))
	return inst
}

// saveManual 保存一个手动触发的流程实例
func saveManual(t *testing.T, h *countingHistory, id, definitionID int64, state types.ExecutionStatus, startTime, endTime time.Time) *storage.ProcessInstance {
	t.Helper()
	inst := &storage.ProcessInstance{
		ID:                  id,
		ProcessDefinitionID: definitionID,
		Name:                "wf",
		State:               state,
		RunMode:             types.RunModeManual,
		StartTime:           startTime,
	}
	if !endTime.IsZero() {
		inst.EndTime = timePtr(endTime)
	}
	require.NoError(t, h.inner.SaveProcessInstance(context.Background(), inst))
	return inst
}

func saveTask(t *testing.T, h *countingHistory, id, processInstanceID int64, name string, state types.ExecutionStatus, flag types.Flag) {
	t.Helper()
	require.NoError(t, h.inner.SaveTaskInstance(context.Background(), &storage.TaskInstance{
		ID:                id,
		Name:              name,
		ProcessInstanceID: processInstanceID,
		State:             state,
		Flag:              flag,
		StartTime:         testNow.Add(-time.Hour),
	}))
}

// at 返回基准日期当天的某个时刻
func at(hour, minute int) time.Time {
	return time.Date(testNow.Year(), testNow.Month(), testNow.Day(), hour, minute, 0, 0, time.UTC)
}

// staticResolver 返回固定区间的解析器
type staticResolver struct {
	intervals map[string][]dateutil.DateInterval
	err       error
}

func (r *staticResolver) Supports(dateValue string) bool {
	_, ok := r.intervals[dateValue]
	return ok
}

func (r *staticResolver) Resolve(reference time.Time, dateValue string) ([]dateutil.DateInterval, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.intervals[dateValue], nil
}
