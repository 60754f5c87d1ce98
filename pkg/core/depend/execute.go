package depend

import (
	"context"
	"fmt"
	"time"
)

// DependentExecute 依赖检查状态机（对外导出）
// 状态：WAITING（初始）-> SUCCESS | FAILED（终态，不再变化）
// 不支持并发轮询，同一实例的调用方需自行串行化
type DependentExecute struct {
	model       *DependentTaskModel
	evaluator   *ItemEvaluator
	modelResult DependResult
	resultMap   map[string]DependResult // 仅缓存终态结果
}

// NewDependentExecute 创建依赖检查状态机
func NewDependentExecute(model *DependentTaskModel, evaluator *ItemEvaluator) (*DependentExecute, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: 依赖声明为空", ErrMalformedDeclaration)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("依赖项计算器为空")
	}
	return &DependentExecute{
		model:       model,
		evaluator:   evaluator,
		modelResult: DependResultWaiting,
		resultMap:   make(map[string]DependResult),
	}, nil
}

// Finish 轮询入口：判断依赖是否已结束
// 已是终态时直接返回true，不再查询历史；否则重新计算整体结果，结果为终态时返回true
func (e *DependentExecute) Finish(ctx context.Context, currentTime time.Time) (bool, error) {
	if e.modelResult.IsFinished() {
		return true, nil
	}
	result, err := e.GetModelDependResult(ctx, currentTime)
	if err != nil {
		return false, err
	}
	return result.IsFinished(), nil
}

// GetModelDependResult 按声明顺序计算所有依赖项并按关系合并为整体结果
// 整体结果一旦为终态便不再重新计算；出错时整体结果保持不变，已缓存的终态结果保留
func (e *DependentExecute) GetModelDependResult(ctx context.Context, currentTime time.Time) (DependResult, error) {
	if e.modelResult.IsFinished() {
		return e.modelResult, nil
	}

	items := e.model.Items()
	results := make([]DependResult, 0, len(items))
	for _, item := range items {
		result, err := e.GetDependResultForItem(ctx, item, currentTime)
		if err != nil {
			return e.modelResult, fmt.Errorf("计算依赖项 %s 失败: %w", item.GetKey(), err)
		}
		results = append(results, result)
	}

	e.modelResult = GetDependResultForRelation(e.model.Relation(), results)
	return e.modelResult, nil
}

// GetDependResultForItem 返回依赖项结果：已缓存的终态结果直接返回，否则重新计算
// 只有终态结果会被缓存，等待中的依赖项在下次轮询时重新计算
func (e *DependentExecute) GetDependResultForItem(ctx context.Context, item DependentItem, currentTime time.Time) (DependResult, error) {
	key := item.GetKey()
	if result, ok := e.resultMap[key]; ok {
		return result, nil
	}

	result, err := e.evaluator.Evaluate(ctx, item, currentTime)
	if err != nil {
		return DependResultWaiting, err
	}
	if result.IsFinished() {
		e.resultMap[key] = result
	}
	return result, nil
}

// GetDependResultMap 返回已缓存终态结果的副本（用于诊断）
func (e *DependentExecute) GetDependResultMap() map[string]DependResult {
	out := make(map[string]DependResult, len(e.resultMap))
	for k, v := range e.resultMap {
		out[k] = v
	}
	return out
}

// Result 返回当前整体结果
func (e *DependentExecute) Result() DependResult {
	return e.modelResult
}
