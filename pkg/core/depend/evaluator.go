package depend

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/storage"
)

// ItemEvaluator 计算单个依赖项的结果（对外导出）
type ItemEvaluator struct {
	resolver dateutil.IntervalResolver
	history  storage.ProcessHistoryReader
	selector *HistorySelector
}

// NewItemEvaluator 创建ItemEvaluator
func NewItemEvaluator(resolver dateutil.IntervalResolver, history storage.ProcessHistoryReader) *ItemEvaluator {
	return &ItemEvaluator{
		resolver: resolver,
		history:  history,
		selector: NewHistorySelector(history),
	}
}

// Evaluate 以evaluationTime为基准计算依赖项结果
// 区间按解析器给出的顺序逐个检查，遇到第一个非成功的区间立即返回
func (e *ItemEvaluator) Evaluate(ctx context.Context, item DependentItem, evaluationTime time.Time) (DependResult, error) {
	intervals, err := e.resolver.Resolve(evaluationTime, item.DateValue)
	if err != nil {
		return DependResultWaiting, fmt.Errorf("%w: 解析日期表达式失败: %w", ErrCollaboratorUnavailable, err)
	}
	return e.calculateResultForTasks(ctx, item, intervals)
}

// calculateResultForTasks 计算依赖项在一组区间上的结果，没有区间时为失败
func (e *ItemEvaluator) calculateResultForTasks(ctx context.Context, item DependentItem, intervals []dateutil.DateInterval) (DependResult, error) {
	result := DependResultFailed
	for _, interval := range intervals {
		inst, err := e.selector.FindLastProcessInterval(ctx, item.DefinitionID, interval)
		if err != nil {
			return DependResultWaiting, err
		}
		if inst == nil {
			log.Printf("❌ [依赖检查] 未找到对应的流程实例: DefinitionID=%d, Start=%s, End=%s",
				item.DefinitionID, interval.StartTime.Format(time.DateTime), interval.EndTime.Format(time.DateTime))
			return DependResultFailed, nil
		}

		if item.IsAllTasks() {
			result = DependResultByState(inst.State)
		} else {
			task, err := e.findTask(ctx, inst.ID, item.DepTasks)
			if err != nil {
				return DependResultWaiting, err
			}
			if task == nil {
				// 流程实例中找不到该任务，可能流程仍在运行或已失败，按流程状态判断
				result = DependResultByState(inst.State)
			} else {
				result = DependResultByState(task.State)
			}
		}

		if result != DependResultSuccess {
			break
		}
	}
	return result, nil
}

// findTask 在流程实例的有效任务中按名称查找
func (e *ItemEvaluator) findTask(ctx context.Context, processInstanceID int64, name string) (*storage.TaskInstance, error) {
	tasks, err := e.history.FindValidTaskListByProcessID(ctx, processInstanceID)
	if err != nil {
		return nil, fmt.Errorf("%w: 查询任务实例失败: %w", ErrCollaboratorUnavailable, err)
	}
	for _, t := range tasks {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}
