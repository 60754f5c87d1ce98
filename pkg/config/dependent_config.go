package config

import (
	"fmt"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/depend"
)

// DependentConfig 依赖声明（对外导出）
//
// 示例:
//
//	relation: AND
//	depend_task_list:
//	  - relation: OR
//	    depend_item_list:
//	      - definition_id: 3
//	        dep_tasks: extract
//	        cycle: day
//	        date_value: today
type DependentConfig struct {
	Relation       string                 `yaml:"relation" json:"relation"`
	DependTaskList []DependentModelConfig `yaml:"depend_task_list" json:"depend_task_list"`
}

// DependentModelConfig 一组依赖项及其关系
type DependentModelConfig struct {
	Relation       string                `yaml:"relation" json:"relation"`
	DependItemList []DependentItemConfig `yaml:"depend_item_list" json:"depend_item_list"`
}

// DependentItemConfig 单个依赖项
type DependentItemConfig struct {
	Key          string `yaml:"key" json:"key,omitempty"`
	DefinitionID int64  `yaml:"definition_id" json:"definition_id"`
	DepTasks     string `yaml:"dep_tasks" json:"dep_tasks"`
	Cycle        string `yaml:"cycle" json:"cycle,omitempty"`
	DateValue    string `yaml:"date_value" json:"date_value"`
}

// ApplyDefaults 应用默认值：关系为空时取AND，依赖任务为空时依赖整个流程
func (c *DependentConfig) ApplyDefaults() {
	if c.Relation == "" {
		c.Relation = string(depend.RelationAnd)
	}
	for i := range c.DependTaskList {
		m := &c.DependTaskList[i]
		if m.Relation == "" {
			m.Relation = string(depend.RelationAnd)
		}
		for j := range m.DependItemList {
			if m.DependItemList[j].DepTasks == "" {
				m.DependItemList[j].DepTasks = depend.DependentAll
			}
		}
	}
}

// ToParameters 转换为依赖任务参数，声明无效时返回 depend.ErrMalformedDeclaration
func (c *DependentConfig) ToParameters(resolver dateutil.IntervalResolver) (*depend.DependentParameters, error) {
	relation, err := depend.ParseRelation(c.Relation)
	if err != nil {
		return nil, err
	}
	if len(c.DependTaskList) == 0 {
		return nil, fmt.Errorf("%w: depend_task_list不能为空", depend.ErrMalformedDeclaration)
	}

	params := &depend.DependentParameters{Relation: relation}
	for i, m := range c.DependTaskList {
		modelRelation, err := depend.ParseRelation(m.Relation)
		if err != nil {
			return nil, fmt.Errorf("depend_task_list[%d]: %w", i, err)
		}

		items := make([]depend.DependentItem, 0, len(m.DependItemList))
		for _, it := range m.DependItemList {
			items = append(items, depend.DependentItem{
				Key:          it.Key,
				DefinitionID: it.DefinitionID,
				DepTasks:     it.DepTasks,
				Cycle:        it.Cycle,
				DateValue:    it.DateValue,
			})
		}

		model, err := depend.NewDependentTaskModel(items, modelRelation, resolver)
		if err != nil {
			return nil, fmt.Errorf("depend_task_list[%d]: %w", i, err)
		}
		params.DependTaskList = append(params.DependTaskList, model)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}
