// Package memory 执行历史Repository的内存实现，查询语义与SQL实现一致
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/types"
	"github.com/LENAX/dependent-engine/pkg/storage"
)

// HistoryRepo 内存执行历史Repository（对外导出）
type HistoryRepo struct {
	mu        sync.RWMutex
	processes map[int64]*storage.ProcessInstance
	tasks     map[int64]*storage.TaskInstance
}

// NewHistoryRepo 创建内存执行历史Repository
func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{
		processes: make(map[int64]*storage.ProcessInstance),
		tasks:     make(map[int64]*storage.TaskInstance),
	}
}

// SaveProcessInstance 保存流程实例（存储副本）
func (r *HistoryRepo) SaveProcessInstance(ctx context.Context, inst *storage.ProcessInstance) error {
	if inst == nil || inst.ID <= 0 {
		return fmt.Errorf("流程实例ID无效")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes[inst.ID] = copyProcess(inst)
	return nil
}

// SaveTaskInstance 保存任务实例（存储副本）
func (r *HistoryRepo) SaveTaskInstance(ctx context.Context, task *storage.TaskInstance) error {
	if task == nil || task.ID <= 0 {
		return fmt.Errorf("任务实例ID无效")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = copyTask(task)
	return nil
}

// FindLastRunningProcess 查询区间内最近一个正在运行的流程实例
func (r *HistoryRepo) FindLastRunningProcess(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	running := make(map[types.ExecutionStatus]bool)
	for _, s := range types.RunningStatuses() {
		running[s] = true
	}

	candidates := r.filter(func(p *storage.ProcessInstance) bool {
		if p.ProcessDefinitionID != definitionID || !running[p.State] {
			return false
		}
		return (p.ScheduleTime != nil && interval.Contains(*p.ScheduleTime)) || interval.Contains(p.StartTime)
	})
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].StartTime.Equal(candidates[j].StartTime) {
			return candidates[i].StartTime.After(candidates[j].StartTime)
		}
		return candidates[i].ID > candidates[j].ID
	})
	return first(candidates), nil
}

// FindLastSchedulerProcessInterval 查询调度时间落在区间内、最晚结束的定时调度实例
func (r *HistoryRepo) FindLastSchedulerProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	candidates := r.filter(func(p *storage.ProcessInstance) bool {
		return p.ProcessDefinitionID == definitionID &&
			p.RunMode == types.RunModeScheduler &&
			p.ScheduleTime != nil && interval.Contains(*p.ScheduleTime)
	})
	sortByEndTimeDesc(candidates)
	return first(candidates), nil
}

// FindLastManualProcessInterval 查询结束时间落在区间内、最晚结束的手动触发实例
func (r *HistoryRepo) FindLastManualProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	candidates := r.filter(func(p *storage.ProcessInstance) bool {
		return p.ProcessDefinitionID == definitionID &&
			p.RunMode == types.RunModeManual &&
			p.EndTime != nil && interval.Contains(*p.EndTime)
	})
	sortByEndTimeDesc(candidates)
	return first(candidates), nil
}

// FindValidTaskListByProcessID 查询流程实例下所有有效的任务实例
func (r *HistoryRepo) FindValidTaskListByProcessID(ctx context.Context, processInstanceID int64) ([]*storage.TaskInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*storage.TaskInstance, 0)
	for _, t := range r.tasks {
		if t.ProcessInstanceID == processInstanceID && t.Flag == types.FlagYes {
			tasks = append(tasks, copyTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartTime.Equal(tasks[j].StartTime) {
			return tasks[i].StartTime.After(tasks[j].StartTime)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

// filter 返回满足条件的流程实例副本
func (r *HistoryRepo) filter(match func(p *storage.ProcessInstance) bool) []*storage.ProcessInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*storage.ProcessInstance
	for _, p := range r.processes {
		if match(p) {
			out = append(out, copyProcess(p))
		}
	}
	return out
}

// sortByEndTimeDesc 结束时间倒序，未结束的排在最后
func sortByEndTimeDesc(list []*storage.ProcessInstance) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].EndTime, list[j].EndTime
		switch {
		case a == nil && b == nil:
			return list[i].ID > list[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		default:
			return list[i].ID > list[j].ID
		}
	})
}

func first(list []*storage.ProcessInstance) *storage.ProcessInstance {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyProcess(p *storage.ProcessInstance) *storage.ProcessInstance {
	c := *p
	c.ScheduleTime = copyTime(p.ScheduleTime)
	c.EndTime = copyTime(p.EndTime)
	return &c
}

func copyTask(t *storage.TaskInstance) *storage.TaskInstance {
	c := *t
	c.EndTime = copyTime(t.EndTime)
	return &c
}

var _ storage.ProcessHistoryRepository = (*HistoryRepo)(nil)
