package depend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
)

func TestDependentItem_GetKey(t *testing.T) {
	item := DependentItem{DefinitionID: 3, DepTasks: "extract", Cycle: "day", DateValue: "today"}
	assert.Equal(t, "3-extract-day-today", item.GetKey())

	item.Key = "custom"
	assert.Equal(t, "custom", item.GetKey())
}

func TestNewDependentTaskModel_Valid(t *testing.T) {
	resolver := dateutil.NewDefaultResolver()
	model, err := NewDependentTaskModel([]DependentItem{
		{DefinitionID: 3, DepTasks: "extract", Cycle: "day", DateValue: "today"},
		{DefinitionID: 7, DepTasks: DependentAll, DateValue: "last1Hour"},
	}, RelationAnd, resolver)
	require.NoError(t, err)

	items := model.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "3-extract-day-today", items[0].Key)
	assert.Equal(t, "7-ALL--last1Hour", items[1].Key)
	assert.Equal(t, RelationAnd, model.Relation())

	// 修改副本不影响声明
	items[0].DefinitionID = 99
	assert.Equal(t, int64(3), model.Items()[0].DefinitionID)
}

func TestNewDependentTaskModel_Malformed(t *testing.T) {
	resolver := dateutil.NewDefaultResolver()
	valid := DependentItem{DefinitionID: 3, DepTasks: "extract", DateValue: "today"}

	tests := []struct {
		name     string
		items    []DependentItem
		relation DependentRelation
	}{
		{"空依赖列表", nil, RelationAnd},
		{"未知关系", []DependentItem{valid}, DependentRelation("XOR")},
		{"不支持的日期表达式", []DependentItem{{DefinitionID: 3, DepTasks: "extract", DateValue: "yesterdayish"}}, RelationAnd},
		{"周期不匹配", []DependentItem{{DefinitionID: 3, DepTasks: "extract", Cycle: "hour", DateValue: "today"}}, RelationAnd},
		{"未知周期", []DependentItem{{DefinitionID: 3, DepTasks: "extract", Cycle: "year", DateValue: "today"}}, RelationAnd},
		{"流程定义ID无效", []DependentItem{{DefinitionID: 0, DepTasks: "extract", DateValue: "today"}}, RelationAnd},
		{"依赖任务为空", []DependentItem{{DefinitionID: 3, DateValue: "today"}}, RelationAnd},
		{"键重复", []DependentItem{valid, valid}, RelationOr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewDependentTaskModel(tt.items, tt.relation, resolver)
			require.Error(t, err)
			assert.Nil(t, model)
			assert.True(t, errors.Is(err, ErrMalformedDeclaration), "错误应为ErrMalformedDeclaration: %v", err)
		})
	}
}

func TestNewDependentTaskModel_NilResolver(t *testing.T) {
	_, err := NewDependentTaskModel([]DependentItem{{DefinitionID: 3, DepTasks: "extract", DateValue: "today"}}, RelationAnd, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedDeclaration))
}
