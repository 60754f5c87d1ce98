package depend

import (
	"fmt"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
)

// DependentAll 依赖整个流程（而非某个具体任务）的哨兵值
const DependentAll = "ALL"

// DependentItem 单个依赖项（对外导出）
type DependentItem struct {
	Key          string // 依赖项唯一键，为空时由其他字段生成
	DefinitionID int64  // 被依赖的流程定义ID
	DepTasks     string // 被依赖的任务名称，或 ALL
	Cycle        string // 依赖周期（hour/day/week/month），可为空
	DateValue    string // 相对日期表达式，如 today、last3Days
}

// GetKey 返回依赖项的唯一键
func (i DependentItem) GetKey() string {
	if i.Key != "" {
		return i.Key
	}
	return fmt.Sprintf("%d-%s-%s-%s", i.DefinitionID, i.DepTasks, i.Cycle, i.DateValue)
}

// IsAllTasks 是否依赖整个流程
func (i DependentItem) IsAllTasks() bool {
	return i.DepTasks == DependentAll
}

// DependentTaskModel 依赖声明：一组有序依赖项及其关系（对外导出）
// 构建后不可变
type DependentTaskModel struct {
	items    []DependentItem
	relation DependentRelation
}

// NewDependentTaskModel 创建并校验依赖声明
// 空依赖列表、未知关系、不支持的日期表达式、重复的键都会返回 ErrMalformedDeclaration
func NewDependentTaskModel(items []DependentItem, relation DependentRelation, resolver dateutil.IntervalResolver) (*DependentTaskModel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: 依赖项列表为空", ErrMalformedDeclaration)
	}
	if !relation.IsValid() {
		return nil, fmt.Errorf("%w: 未知的依赖关系 %q", ErrMalformedDeclaration, relation)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: 未提供日期解析器", ErrMalformedDeclaration)
	}

	seen := make(map[string]bool, len(items))
	normalized := make([]DependentItem, 0, len(items))
	for idx, item := range items {
		if err := validateItem(item, resolver); err != nil {
			return nil, fmt.Errorf("%w: 第%d个依赖项: %v", ErrMalformedDeclaration, idx+1, err)
		}
		key := item.GetKey()
		if seen[key] {
			return nil, fmt.Errorf("%w: 依赖项键重复 %q", ErrMalformedDeclaration, key)
		}
		seen[key] = true
		item.Key = key
		normalized = append(normalized, item)
	}

	return &DependentTaskModel{items: normalized, relation: relation}, nil
}

func validateItem(item DependentItem, resolver dateutil.IntervalResolver) error {
	if item.DefinitionID <= 0 {
		return fmt.Errorf("流程定义ID无效: %d", item.DefinitionID)
	}
	if item.DepTasks == "" {
		return fmt.Errorf("依赖任务为空，依赖整个流程请使用 %s", DependentAll)
	}
	if !resolver.Supports(item.DateValue) {
		return fmt.Errorf("不支持的日期表达式 %q", item.DateValue)
	}
	if item.Cycle != "" {
		if !dateutil.IsValidCycle(item.Cycle) {
			return fmt.Errorf("未知的依赖周期 %q", item.Cycle)
		}
		if !dateutil.CycleAllows(item.Cycle, item.DateValue) {
			return fmt.Errorf("日期表达式 %q 不属于周期 %q", item.DateValue, item.Cycle)
		}
	}
	return nil
}

// Items 返回依赖项副本（按声明顺序）
func (m *DependentTaskModel) Items() []DependentItem {
	out := make([]DependentItem, len(m.items))
	copy(out, m.items)
	return out
}

// Relation 返回依赖关系
func (m *DependentTaskModel) Relation() DependentRelation {
	return m.relation
}
