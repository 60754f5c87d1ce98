package depend

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DependentParameters 依赖任务参数：多个依赖声明及其顶层关系（对外导出）
type DependentParameters struct {
	DependTaskList []*DependentTaskModel
	Relation       DependentRelation
}

// Validate 校验参数
func (p *DependentParameters) Validate() error {
	if p == nil || len(p.DependTaskList) == 0 {
		return fmt.Errorf("%w: 依赖声明列表为空", ErrMalformedDeclaration)
	}
	if !p.Relation.IsValid() {
		return fmt.Errorf("%w: 未知的顶层依赖关系 %q", ErrMalformedDeclaration, p.Relation)
	}
	// 依赖项结果按键缓存，键在所有声明之间必须唯一
	owner := make(map[string]int)
	for i, m := range p.DependTaskList {
		if m == nil {
			return fmt.Errorf("%w: 第%d个依赖声明为空", ErrMalformedDeclaration, i+1)
		}
		for _, item := range m.Items() {
			key := item.GetKey()
			if first, ok := owner[key]; ok {
				return fmt.Errorf("%w: 第%d个与第%d个依赖声明的依赖项键重复 %q", ErrMalformedDeclaration, first+1, i+1, key)
			}
			owner[key] = i
		}
	}
	return nil
}

// DependentTask 依赖任务：为每个依赖声明维护一个DependentExecute，并按顶层关系合并（对外导出）
type DependentTask struct {
	mu            sync.RWMutex
	relation      DependentRelation
	executes      []*DependentExecute
	result        DependResult
	resultMap     map[string]DependResult
	newlyResolved map[string]DependResult
	lastPollTime  time.Time
}

// NewDependentTask 创建依赖任务
func NewDependentTask(params *DependentParameters, evaluator *ItemEvaluator) (*DependentTask, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	executes := make([]*DependentExecute, 0, len(params.DependTaskList))
	for _, model := range params.DependTaskList {
		exec, err := NewDependentExecute(model, evaluator)
		if err != nil {
			return nil, err
		}
		executes = append(executes, exec)
	}
	return &DependentTask{
		relation:      params.Relation,
		executes:      executes,
		result:        DependResultWaiting,
		resultMap:     make(map[string]DependResult),
		newlyResolved: make(map[string]DependResult),
	}, nil
}

// Poll 以业务日期date轮询一次所有未结束的依赖声明
// 顶层合并结果为终态时返回true；出错时本次轮询的结果不生效，下次轮询重新计算
func (t *DependentTask) Poll(ctx context.Context, date time.Time) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.newlyResolved = make(map[string]DependResult)
	if t.result.IsFinished() {
		return true, nil
	}
	t.lastPollTime = time.Now()

	results := make([]DependResult, 0, len(t.executes))
	for _, exec := range t.executes {
		if !exec.Result().IsFinished() {
			if _, err := exec.Finish(ctx, date); err != nil {
				t.mergeResolved(exec)
				return false, err
			}
		}
		t.mergeResolved(exec)
		results = append(results, exec.Result())
	}

	t.result = GetDependResultForRelation(t.relation, results)
	if t.result.IsFinished() {
		log.Printf("✅ [依赖检查] 依赖检查结束: Result=%s", t.result)
	}
	return t.result.IsFinished(), nil
}

// mergeResolved 合并execute中新缓存的终态结果
func (t *DependentTask) mergeResolved(exec *DependentExecute) {
	for key, r := range exec.GetDependResultMap() {
		if _, ok := t.resultMap[key]; ok {
			continue
		}
		t.resultMap[key] = r
		t.newlyResolved[key] = r
	}
}

// Result 返回顶层合并结果
func (t *DependentTask) Result() DependResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Snapshot 返回所有已缓存依赖项终态结果的副本
func (t *DependentTask) Snapshot() map[string]DependResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]DependResult, len(t.resultMap))
	for k, v := range t.resultMap {
		out[k] = v
	}
	return out
}

// NewlyResolved 返回最近一次轮询中新得到终态的依赖项
func (t *DependentTask) NewlyResolved() map[string]DependResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]DependResult, len(t.newlyResolved))
	for k, v := range t.newlyResolved {
		out[k] = v
	}
	return out
}

// ModelResults 返回每个依赖声明的当前结果（按声明顺序）
func (t *DependentTask) ModelResults() []DependResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]DependResult, 0, len(t.executes))
	for _, exec := range t.executes {
		out = append(out, exec.Result())
	}
	return out
}

// LastPollTime 返回最近一次实际计算的时间
func (t *DependentTask) LastPollTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastPollTime
}
