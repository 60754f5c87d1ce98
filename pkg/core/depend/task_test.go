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

func newTestModel(t *testing.T, relation DependentRelation, items ...DependentItem) *DependentTaskModel {
	t.Helper()
	model, err := NewDependentTaskModel(items, relation, dateutil.NewDefaultResolver())
	require.NoError(t, err)
	return model
}

func TestDependentParameters_Validate(t *testing.T) {
	var nilParams *DependentParameters
	assert.True(t, errors.Is(nilParams.Validate(), ErrMalformedDeclaration))

	empty := &DependentParameters{Relation: RelationAnd}
	assert.True(t, errors.Is(empty.Validate(), ErrMalformedDeclaration))

	model := newTestModel(t, RelationAnd, reportItem)
	badRelation := &DependentParameters{DependTaskList: []*DependentTaskModel{model}, Relation: "NAND"}
	assert.True(t, errors.Is(badRelation.Validate(), ErrMalformedDeclaration))

	nilModel := &DependentParameters{DependTaskList: []*DependentTaskModel{model, nil}, Relation: RelationAnd}
	assert.True(t, errors.Is(nilModel.Validate(), ErrMalformedDeclaration))

	valid := &DependentParameters{DependTaskList: []*DependentTaskModel{model}, Relation: RelationOr}
	assert.NoError(t, valid.Validate())
}

func TestDependentParameters_ValidateDuplicateKeyAcrossModels(t *testing.T) {
	other := DependentItem{DefinitionID: 5, DepTasks: DependentAll, DateValue: "today"}
	first := newTestModel(t, RelationAnd, reportItem)
	second := newTestModel(t, RelationOr, other, reportItem)

	params := &DependentParameters{DependTaskList: []*DependentTaskModel{first, second}, Relation: RelationAnd}
	err := params.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedDeclaration))
	assert.Contains(t, err.Error(), reportItem.GetKey())

	_, err = NewDependentTask(params, newTestEvaluator(newCountingHistory()))
	assert.True(t, errors.Is(err, ErrMalformedDeclaration))

	// 显式Key同名同样视为重复
	renamed := newTestModel(t, RelationAnd, DependentItem{Key: reportItem.GetKey(), DefinitionID: 9, DepTasks: DependentAll, DateValue: "today"})
	params.DependTaskList = []*DependentTaskModel{first, renamed}
	assert.True(t, errors.Is(params.Validate(), ErrMalformedDeclaration))

	params.DependTaskList = []*DependentTaskModel{first, newTestModel(t, RelationAnd, other)}
	assert.NoError(t, params.Validate())
}

func TestDependentTask_PollAcrossModels(t *testing.T) {
	ctx := context.Background()
	h := newCountingHistory()
	// 第一个声明的上游没有任何记录 -> 失败；第二个声明的上游仍在运行 -> 等待
	missing := DependentItem{DefinitionID: 5, DepTasks: DependentAll, DateValue: "today"}
	saveScheduled(t, h, 20, 7, types.StatusRunningExecution, at(10, 0), time.Time{})

	params := &DependentParameters{
		DependTaskList: []*DependentTaskModel{
			newTestModel(t, RelationAnd, missing),
			newTestModel(t, RelationAnd, reportItem),
		},
		Relation: RelationOr,
	}
	task, err := NewDependentTask(params, newTestEvaluator(h))
	require.NoError(t, err)
	assert.Equal(t, DependResultWaiting, task.Result())

	finished, err := task.Poll(ctx, testNow)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, DependResultWaiting, task.Result())
	assert.Equal(t, []DependResult{DependResultFailed, DependResultWaiting}, task.ModelResults())
	assert.Equal(t, map[string]DependResult{missing.GetKey(): DependResultFailed}, task.NewlyResolved())
	assert.False(t, task.LastPollTime().IsZero())

	// 已结束的声明不再查询
	reads := h.count("scheduler")
	saveScheduled(t, h, 20, 7, types.StatusSuccess, at(10, 0), at(11, 0))

	finished, err = task.Poll(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, DependResultSuccess, task.Result())
	assert.Equal(t, map[string]DependResult{reportItem.GetKey(): DependResultSuccess}, task.NewlyResolved())
	assert.Equal(t, reads+1, h.count("scheduler"))
	assert.Equal(t, map[string]DependResult{
		missing.GetKey():    DependResultFailed,
		reportItem.GetKey(): DependResultSuccess,
	}, task.Snapshot())

	// 终态后的轮询不再读取历史
	total := h.total()
	finished, err = task.Poll(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Empty(t, task.NewlyResolved())
	assert.Equal(t, total, h.total())
}

func TestDependentTask_PollError(t *testing.T) {
	h := newCountingHistory()
	params := &DependentParameters{
		DependTaskList: []*DependentTaskModel{newTestModel(t, RelationAnd, reportItem)},
		Relation:       RelationAnd,
	}
	task, err := NewDependentTask(params, newTestEvaluator(h))
	require.NoError(t, err)

	h.failOn("running", errStoreDown)
	finished, err := task.Poll(context.Background(), testNow)
	require.Error(t, err)
	assert.False(t, finished)
	assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
	assert.Equal(t, DependResultWaiting, task.Result())
}

func TestNewDependentTask_Invalid(t *testing.T) {
	_, err := NewDependentTask(&DependentParameters{Relation: RelationAnd}, newTestEvaluator(newCountingHistory()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedDeclaration))
}
