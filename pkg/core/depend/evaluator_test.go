package depend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/types"
)

func newTestEvaluator(h *countingHistory) *ItemEvaluator {
	return NewItemEvaluator(dateutil.NewDefaultResolver(), h)
}

// 依赖整个流程，区间内有运行中实例（同时有更早的已完成实例）-> 等待
func TestItemEvaluator_RunningProcessWaits(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 1, 7, types.StatusSuccess, at(1, 0), at(2, 0))
	saveScheduled(t, h, 2, 7, types.StatusRunningExecution, at(10, 0), time.Time{})

	item := DependentItem{DefinitionID: 7, DepTasks: DependentAll, DateValue: "today"}
	result, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultWaiting, result)
}

// 依赖具体任务，区间内唯一的已完成实例中该任务成功 -> 成功
func TestItemEvaluator_TaskSucceeded(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)
	saveTask(t, h, 101, 10, "load", types.StatusFailure, types.FlagYes)

	item := DependentItem{DefinitionID: 3, DepTasks: "extract", DateValue: "today"}
	result, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultSuccess, result)
}

// 流程实例中没有该任务时按流程状态判断
func TestItemEvaluator_MissingTaskFallsBackToProcessState(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusRunningExecution, at(1, 0), time.Time{})
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)
	// 无效的任务实例不参与查找
	saveTask(t, h, 101, 10, "load", types.StatusSuccess, types.FlagNo)

	item := DependentItem{DefinitionID: 3, DepTasks: "load", DateValue: "today"}
	result, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultWaiting, result)

	h2 := newCountingHistory()
	saveScheduled(t, h2, 11, 3, types.StatusFailure, at(1, 0), at(2, 0))
	result, err = newTestEvaluator(h2).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultFailed, result)
}

// 第一个区间没有记录时立即失败，不再查询后续区间
func TestItemEvaluator_MissingHistoryShortCircuits(t *testing.T) {
	h := newCountingHistory()
	// last2Days: 10-19, 10-20；只有10-20有成功记录
	saveScheduled(t, h, 1, 7, types.StatusSuccess, at(1, 0).AddDate(0, 0, -1), at(2, 0).AddDate(0, 0, -1))

	item := DependentItem{DefinitionID: 7, DepTasks: DependentAll, DateValue: "last2Days"}
	result, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultFailed, result)
	assert.Equal(t, 1, h.count("running"))
	assert.Equal(t, 1, h.count("scheduler"))
	assert.Equal(t, 1, h.count("manual"))
}

func TestItemEvaluator_AllIntervalsSucceed(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 1, 7, types.StatusSuccess, at(1, 0).AddDate(0, 0, -2), at(2, 0).AddDate(0, 0, -2))
	saveManual(t, h, 2, 7, types.StatusSuccess, at(1, 0).AddDate(0, 0, -1), at(2, 0).AddDate(0, 0, -1))

	item := DependentItem{DefinitionID: 7, DepTasks: DependentAll, DateValue: "last2Days"}
	result, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultSuccess, result)
	assert.Equal(t, 2, h.count("running"))
}

// 区间按解析顺序检查，遇到等待即返回
func TestItemEvaluator_PreservesIntervalOrder(t *testing.T) {
	h := newCountingHistory()
	first := dateutil.NewDateInterval(at(0, 0), at(6, 0))
	second := dateutil.NewDateInterval(at(6, 0), at(12, 0))
	saveScheduled(t, h, 1, 7, types.StatusRunningExecution, at(1, 0), time.Time{})
	saveScheduled(t, h, 2, 7, types.StatusFailure, at(7, 0), at(8, 0))

	resolver := &staticResolver{intervals: map[string][]dateutil.DateInterval{"split": {first, second}}}
	item := DependentItem{DefinitionID: 7, DepTasks: DependentAll, DateValue: "split"}
	result, err := NewItemEvaluator(resolver, h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultWaiting, result)
	assert.Equal(t, 1, h.count("running"))
}

func TestItemEvaluator_NoIntervalsFails(t *testing.T) {
	h := newCountingHistory()
	resolver := &staticResolver{intervals: map[string][]dateutil.DateInterval{"none": nil}}

	item := DependentItem{DefinitionID: 7, DepTasks: DependentAll, DateValue: "none"}
	result, err := NewItemEvaluator(resolver, h).Evaluate(context.Background(), item, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultFailed, result)
	assert.Equal(t, 0, h.total())
}

func TestItemEvaluator_CollaboratorErrors(t *testing.T) {
	item := DependentItem{DefinitionID: 3, DepTasks: "extract", DateValue: "today"}

	t.Run("历史存储不可用", func(t *testing.T) {
		h := newCountingHistory()
		saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
		h.failOn("tasks", errStoreDown)

		_, err := newTestEvaluator(h).Evaluate(context.Background(), item, testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
		assert.True(t, errors.Is(err, errStoreDown))
	})

	t.Run("日期解析失败", func(t *testing.T) {
		h := newCountingHistory()
		resolver := &staticResolver{err: errors.New("calendar offline")}

		_, err := NewItemEvaluator(resolver, h).Evaluate(context.Background(), item, testNow)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
		assert.Equal(t, 0, h.total())
	})
}
