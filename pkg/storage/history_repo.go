package storage

import (
	"context"
	"time"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/types"
)

// ProcessInstance 流程实例执行记录（对外导出）
type ProcessInstance struct {
	ID                  int64                 // 实例ID
	ProcessDefinitionID int64                 // 流程定义ID
	Name                string                // 实例名称
	State               types.ExecutionStatus // 执行状态
	RunMode             types.RunMode         // 触发方式
	ScheduleTime        *time.Time            // 调度时间（手动触发时为空）
	StartTime           time.Time             // 开始时间
	EndTime             *time.Time            // 结束时间（未结束为空）
}

// TaskInstance 任务实例执行记录（对外导出）
type TaskInstance struct {
	ID                int64                 // 实例ID
	Name              string                // 任务名称
	ProcessInstanceID int64                 // 所属流程实例ID
	State             types.ExecutionStatus // 执行状态
	Flag              types.Flag            // 是否有效
	StartTime         time.Time             // 开始时间
	EndTime           *time.Time            // 结束时间
}

// ProcessHistoryReader 执行历史只读接口（对外导出）
// 未找到记录属于正常结果：单条查询返回(nil, nil)，列表查询返回空切片
type ProcessHistoryReader interface {
	// FindLastRunningProcess 查询区间内（调度时间或开始时间）最近一个正在运行的流程实例
	FindLastRunningProcess(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*ProcessInstance, error)
	// FindLastSchedulerProcessInterval 查询调度时间落在区间内、最晚结束的定时调度实例
	FindLastSchedulerProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*ProcessInstance, error)
	// FindLastManualProcessInterval 查询结束时间落在区间内、最晚结束的手动触发实例
	FindLastManualProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*ProcessInstance, error)
	// FindValidTaskListByProcessID 查询流程实例下所有有效的任务实例
	FindValidTaskListByProcessID(ctx context.Context, processInstanceID int64) ([]*TaskInstance, error)
}

// ProcessHistoryWriter 执行历史写接口（对外导出）
// 依赖检查本身不写历史，写接口供调度器/测试数据准备使用
type ProcessHistoryWriter interface {
	// SaveProcessInstance 保存流程实例（按ID插入或更新）
	SaveProcessInstance(ctx context.Context, inst *ProcessInstance) error
	// SaveTaskInstance 保存任务实例（按ID插入或更新）
	SaveTaskInstance(ctx context.Context, task *TaskInstance) error
}

// ProcessHistoryRepository 执行历史存储接口（对外导出）
type ProcessHistoryRepository interface {
	ProcessHistoryReader
	ProcessHistoryWriter
}
