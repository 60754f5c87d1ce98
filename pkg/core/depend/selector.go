package depend

import (
	"context"
	"fmt"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/storage"
)

// HistorySelector 为某个时间区间选出唯一的权威流程实例（对外导出）
type HistorySelector struct {
	history storage.ProcessHistoryReader
}

// NewHistorySelector 创建HistorySelector
func NewHistorySelector(history storage.ProcessHistoryReader) *HistorySelector {
	return &HistorySelector{history: history}
}

// FindLastProcessInterval 查找区间内的权威流程实例，未找到时返回(nil, nil)
// 1. 区间内正在运行的实例优先
// 2. 否则在定时调度实例与手动触发实例中取结束时间较晚者
func (s *HistorySelector) FindLastProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	running, err := s.history.FindLastRunningProcess(ctx, definitionID, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: 查询运行中实例失败: %w", ErrCollaboratorUnavailable, err)
	}
	if running != nil {
		return running, nil
	}

	scheduled, err := s.history.FindLastSchedulerProcessInterval(ctx, definitionID, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: 查询定时调度实例失败: %w", ErrCollaboratorUnavailable, err)
	}

	manual, err := s.history.FindLastManualProcessInterval(ctx, definitionID, interval)
	if err != nil {
		return nil, fmt.Errorf("%w: 查询手动触发实例失败: %w", ErrCollaboratorUnavailable, err)
	}

	if manual == nil {
		return scheduled, nil
	}
	if scheduled == nil {
		return manual, nil
	}
	if endedAfter(manual, scheduled) {
		return manual, nil
	}
	return scheduled, nil
}

// endedAfter a是否比b结束得更晚，未结束视为最早
func endedAfter(a, b *storage.ProcessInstance) bool {
	if a.EndTime == nil {
		return false
	}
	if b.EndTime == nil {
		return true
	}
	return a.EndTime.After(*b.EndTime)
}
