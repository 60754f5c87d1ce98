package types

// ExecutionStatus 流程/任务实例的执行状态（对外导出）
type ExecutionStatus string

const (
	// StatusSubmittedSuccess 已提交，等待分发
	StatusSubmittedSuccess ExecutionStatus = "SUBMITTED_SUCCESS"
	// StatusRunningExecution 运行中
	StatusRunningExecution ExecutionStatus = "RUNNING_EXECUTION"
	// StatusReadyPause 准备暂停
	StatusReadyPause ExecutionStatus = "READY_PAUSE"
	// StatusPause 已暂停
	StatusPause ExecutionStatus = "PAUSE"
	// StatusReadyStop 准备停止
	StatusReadyStop ExecutionStatus = "READY_STOP"
	// StatusStop 已停止
	StatusStop ExecutionStatus = "STOP"
	// StatusFailure 执行失败
	StatusFailure ExecutionStatus = "FAILURE"
	// StatusSuccess 执行成功
	StatusSuccess ExecutionStatus = "SUCCESS"
	// StatusNeedFaultTolerance 需要容错处理
	StatusNeedFaultTolerance ExecutionStatus = "NEED_FAULT_TOLERANCE"
	// StatusKill 已被杀死
	StatusKill ExecutionStatus = "KILL"
	// StatusWaitingThread 等待执行线程
	StatusWaitingThread ExecutionStatus = "WAITING_THREAD"
	// StatusWaitingDepend 等待依赖
	StatusWaitingDepend ExecutionStatus = "WAITING_DEPEND"
)

// StatusCategory 执行状态分类（对外导出）
type StatusCategory string

const (
	// CategoryRunning 运行类（运行中、已提交、等待线程）
	CategoryRunning StatusCategory = "RunningLike"
	// CategorySuccess 成功类
	CategorySuccess StatusCategory = "SuccessLike"
	// CategoryOther 其他（失败、停止、超时等，一律视为失败）
	CategoryOther StatusCategory = "Other"
)

// IsValid 检查状态是否为已知状态
func (s ExecutionStatus) IsValid() bool {
	switch s {
	case StatusSubmittedSuccess,
		StatusRunningExecution,
		StatusReadyPause,
		StatusPause,
		StatusReadyStop,
		StatusStop,
		StatusFailure,
		StatusSuccess,
		StatusNeedFaultTolerance,
		StatusKill,
		StatusWaitingThread,
		StatusWaitingDepend:
		return true
	default:
		return false
	}
}

// TypeIsRunning 是否处于执行中
func (s ExecutionStatus) TypeIsRunning() bool {
	return s == StatusRunningExecution || s == StatusWaitingDepend
}

// TypeIsSuccess 是否执行成功
func (s ExecutionStatus) TypeIsSuccess() bool {
	return s == StatusSuccess
}

// TypeIsFailure 是否执行失败
func (s ExecutionStatus) TypeIsFailure() bool {
	return s == StatusFailure || s == StatusNeedFaultTolerance
}

// TypeIsCancel 是否被取消
func (s ExecutionStatus) TypeIsCancel() bool {
	return s == StatusKill || s == StatusStop
}

// Category 将原始执行状态归类（纯函数，未知状态归为Other）
func (s ExecutionStatus) Category() StatusCategory {
	switch {
	case s.TypeIsRunning(), s == StatusSubmittedSuccess, s == StatusWaitingThread:
		return CategoryRunning
	case s.TypeIsSuccess():
		return CategorySuccess
	default:
		return CategoryOther
	}
}

// RunningStatuses 返回历史查询时视为"正在运行"的状态集合
// 包含准备暂停/准备停止：实例仍占据该时间窗口，但分类后会判定为失败
func RunningStatuses() []ExecutionStatus {
	return []ExecutionStatus{
		StatusSubmittedSuccess,
		StatusRunningExecution,
		StatusReadyPause,
		StatusReadyStop,
		StatusWaitingThread,
		StatusWaitingDepend,
	}
}

// RunMode 流程实例的触发方式（对外导出）
type RunMode string

const (
	// RunModeScheduler 定时调度触发
	RunModeScheduler RunMode = "SCHEDULER"
	// RunModeManual 手动触发（含补数、重跑）
	RunModeManual RunMode = "MANUAL"
)

// IsValid 检查触发方式是否有效
func (m RunMode) IsValid() bool {
	return m == RunModeScheduler || m == RunModeManual
}

// Flag 任务实例有效标记（重试后旧实例置为无效）
type Flag int

const (
	// FlagNo 无效
	FlagNo Flag = 0
	// FlagYes 有效
	FlagYes Flag = 1
)
