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
	"github.com/LENAX/dependent-engine/pkg/storage"
)

var (
	extractItem = DependentItem{DefinitionID: 3, DepTasks: "extract", Cycle: "day", DateValue: "today"}
	reportItem  = DependentItem{DefinitionID: 7, DepTasks: DependentAll, Cycle: "day", DateValue: "today"}
)

func newTestExecute(t *testing.T, h *countingHistory, relation DependentRelation, items ...DependentItem) *DependentExecute {
	t.Helper()
	resolver := dateutil.NewDefaultResolver()
	model, err := NewDependentTaskModel(items, relation, resolver)
	require.NoError(t, err)
	exec, err := NewDependentExecute(model, NewItemEvaluator(resolver, h))
	require.NoError(t, err)
	return exec
}

func TestNewDependentExecute_InvalidArgs(t *testing.T) {
	_, err := NewDependentExecute(nil, newTestEvaluator(newCountingHistory()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedDeclaration))

	model, err := NewDependentTaskModel([]DependentItem{extractItem}, RelationAnd, dateutil.NewDefaultResolver())
	require.NoError(t, err)
	_, err = NewDependentExecute(model, nil)
	require.Error(t, err)
}

// AND关系下[成功, 等待] -> 等待；下次轮询只重新计算等待中的依赖项
func TestDependentExecute_AndWaitsThenSucceeds(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)
	saveScheduled(t, h, 20, 7, types.StatusRunningExecution, at(10, 0), time.Time{})

	exec := newTestExecute(t, h, RelationAnd, extractItem, reportItem)
	assert.Equal(t, DependResultWaiting, exec.Result())

	finished, err := exec.Finish(ctx, testNow)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, DependResultWaiting, exec.Result())
	assert.Equal(t, map[string]DependResult{extractItem.GetKey(): DependResultSuccess}, exec.GetDependResultMap())
	assert.Equal(t, 1, h.count("tasks"))

	// 上游记录变化也不影响已缓存的结果
	saveScheduled(t, h, 10, 3, types.StatusFailure, at(1, 0), at(2, 0))

	finished, err = exec.Finish(ctx, testNow)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, 1, h.count("tasks"))

	saveScheduled(t, h, 20, 7, types.StatusSuccess, at(10, 0), at(11, 0))

	finished, err = exec.Finish(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, DependResultSuccess, exec.Result())
	assert.Len(t, exec.GetDependResultMap(), 2)
}

func TestDependentExecute_TerminalPollIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	saveScheduled(t, h, 20, 7, types.StatusKill, at(10, 0), at(11, 0))

	exec := newTestExecute(t, h, RelationAnd, reportItem)
	finished, err := exec.Finish(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, DependResultFailed, exec.Result())

	reads := h.total()
	for i := 0; i < 5; i++ {
		finished, err = exec.Finish(ctx, testNow.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		assert.True(t, finished)
		assert.Equal(t, DependResultFailed, exec.Result())
	}
	assert.Equal(t, reads, h.total())

	result, err := exec.GetModelDependResult(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultFailed, result)
	assert.Equal(t, reads, h.total())
}

func TestDependentExecute_ItemMemoization(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)

	exec := newTestExecute(t, h, RelationAnd, extractItem)
	result, err := exec.GetDependResultForItem(ctx, extractItem, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultSuccess, result)

	reads := h.total()
	// 换一个没有任何记录的日期，仍返回缓存值
	result, err = exec.GetDependResultForItem(ctx, extractItem, testNow.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, DependResultSuccess, result)
	assert.Equal(t, reads, h.total())
}

func TestDependentExecute_WaitingIsNotCached(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	saveScheduled(t, h, 20, 7, types.StatusRunningExecution, at(10, 0), time.Time{})

	exec := newTestExecute(t, h, RelationAnd, reportItem)
	result, err := exec.GetDependResultForItem(ctx, reportItem, testNow)
	require.NoError(t, err)
	assert.Equal(t, DependResultWaiting, result)
	assert.Empty(t, exec.GetDependResultMap())

	_, err = exec.GetDependResultForItem(ctx, reportItem, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, h.count("running"))
}

func TestDependentExecute_OrSucceedsEarly(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)
	saveScheduled(t, h, 20, 7, types.StatusRunningExecution, at(10, 0), time.Time{})

	exec := newTestExecute(t, h, RelationOr, extractItem, reportItem)
	finished, err := exec.Finish(context.Background(), testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, DependResultSuccess, exec.Result())
}

func TestDependentExecute_CollaboratorErrorPropagates(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	saveScheduled(t, h, 10, 3, types.StatusSuccess, at(1, 0), at(2, 0))
	saveTask(t, h, 100, 10, "extract", types.StatusSuccess, types.FlagYes)
	saveScheduled(t, h, 20, 7, types.StatusSuccess, at(10, 0), at(11, 0))

	exec := newTestExecute(t, h, RelationAnd, extractItem, reportItem)

	// 第一个依赖项计算成功后，第二个依赖项查询失败
	failing := &failAfterHistory{countingHistory: h, failDefinition: 7}
	exec.evaluator = NewItemEvaluator(dateutil.NewDefaultResolver(), failing)

	finished, err := exec.Finish(ctx, testNow)
	require.Error(t, err)
	assert.False(t, finished)
	assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
	assert.True(t, errors.Is(err, errStoreDown))
	assert.Equal(t, DependResultWaiting, exec.Result())
	// 出错前已得到的终态结果保留
	assert.Equal(t, DependResultSuccess, exec.GetDependResultMap()[extractItem.GetKey()])

	failing.failDefinition = 0
	finished, err = exec.Finish(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, DependResultSuccess, exec.Result())
}

func TestDependentExecute_GetDependResultMapIsCopy(t *testing.T) {
	h := newCountingHistory()
	saveScheduled(t, h, 20, 7, types.StatusSuccess, at(10, 0), at(11, 0))

	exec := newTestExecute(t, h, RelationAnd, reportItem)
	_, err := exec.Finish(context.Background(), testNow)
	require.NoError(t, err)

	snapshot := exec.GetDependResultMap()
	snapshot[reportItem.GetKey()] = DependResultFailed
	assert.Equal(t, DependResultSuccess, exec.GetDependResultMap()[reportItem.GetKey()])
}

// failAfterHistory 对指定流程定义的查询返回错误
type failAfterHistory struct {
	*countingHistory
	failDefinition int64
}

func (f *failAfterHistory) FindLastRunningProcess(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	if definitionID == f.failDefinition {
		return nil, errStoreDown
	}
	return f.countingHistory.FindLastRunningProcess(ctx, definitionID, interval)
}
