// Package sqlbase 基于sqlx的执行历史Repository通用实现，不同数据库通过Dialect区分
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LENAX/dependent-engine/pkg/core/dateutil"
	"github.com/LENAX/dependent-engine/pkg/core/types"
	"github.com/LENAX/dependent-engine/pkg/storage"
	"github.com/LENAX/dependent-engine/pkg/storage/dao"
	"github.com/jmoiron/sqlx"
)

const (
	processInstanceTable = "process_instance"
	taskInstanceTable    = "task_instance"

	processInstanceColumns = "id, process_definition_id, name, state, run_mode, schedule_time, start_time, end_time"
	taskInstanceColumns    = "id, name, process_instance_id, state, flag, start_time, end_time"
)

var tableSchemas = []string{
	`CREATE TABLE IF NOT EXISTS process_instance (
		id BIGINT PRIMARY KEY,
		process_definition_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		state VARCHAR(64) NOT NULL,
		run_mode VARCHAR(32) NOT NULL,
		schedule_time DATETIME NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NULL
	);`,
	`CREATE TABLE IF NOT EXISTS task_instance (
		id BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		process_instance_id BIGINT NOT NULL,
		state VARCHAR(64) NOT NULL,
		flag INTEGER NOT NULL DEFAULT 1,
		start_time DATETIME NOT NULL,
		end_time DATETIME NULL
	);`,
}

type indexDef struct {
	name    string
	table   string
	columns []string
}

var indexDefs = []indexDef{
	{name: "idx_process_instance_definition", table: processInstanceTable, columns: []string{"process_definition_id", "state"}},
	{name: "idx_task_instance_process", table: taskInstanceTable, columns: []string{"process_instance_id"}},
}

// ddlErrorIgnorer 方言可选实现：判断建索引等DDL错误是否可以忽略（如MySQL索引已存在）
type ddlErrorIgnorer interface {
	IgnoreDDLError(err error) bool
}

// HistoryRepo 执行历史Repository的sqlx实现（对外导出）
type HistoryRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewHistoryRepo 创建执行历史Repository并初始化表结构
func NewHistoryRepo(db *sqlx.DB, dialect storage.Dialect) (*HistoryRepo, error) {
	repo := &HistoryRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// Configure 执行方言的连接配置SQL
func Configure(db *sqlx.DB, dialect storage.Dialect) error {
	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("执行配置SQL失败(%s): %w", stmt, err)
		}
	}
	return nil
}

// GetDB 获取底层数据库连接（对外导出）
func (r *HistoryRepo) GetDB() *sqlx.DB {
	return r.db
}

// Close 关闭数据库连接（对外导出）
func (r *HistoryRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *HistoryRepo) initSchema() error {
	for _, schema := range tableSchemas {
		if _, err := r.db.Exec(r.dialect.CreateTableSQL(schema)); err != nil {
			return fmt.Errorf("执行建表SQL失败: %w", err)
		}
	}

	ignorer, canIgnore := r.dialect.(ddlErrorIgnorer)
	for _, idx := range indexDefs {
		cols := strings.Join(idx.columns, ", ")
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, cols)
		if canIgnore {
			stmt = fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, cols)
		}
		if _, err := r.db.Exec(stmt); err != nil {
			if canIgnore && ignorer.IgnoreDDLError(err) {
				continue
			}
			return fmt.Errorf("创建索引%s失败: %w", idx.name, err)
		}
	}
	return nil
}

// ========== 读操作 ==========

// FindLastRunningProcess 查询区间内最近一个正在运行的流程实例
func (r *HistoryRepo) FindLastRunningProcess(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	states := make([]string, 0, len(types.RunningStatuses()))
	for _, s := range types.RunningStatuses() {
		states = append(states, string(s))
	}
	start, end := utc(interval.StartTime), utc(interval.EndTime)

	query, args, err := sqlx.In(`SELECT `+processInstanceColumns+` FROM process_instance
		WHERE process_definition_id = ? AND state IN (?)
		AND ((schedule_time >= ? AND schedule_time < ?) OR (start_time >= ? AND start_time < ?))
		ORDER BY start_time DESC, id DESC LIMIT 1`,
		definitionID, states, start, end, start, end)
	if err != nil {
		return nil, fmt.Errorf("构建运行中实例查询失败: %w", err)
	}
	return r.getProcessInstance(ctx, query, args...)
}

// FindLastSchedulerProcessInterval 查询调度时间落在区间内、最晚结束的定时调度实例
func (r *HistoryRepo) FindLastSchedulerProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	query := `SELECT ` + processInstanceColumns + ` FROM process_instance
		WHERE process_definition_id = ? AND run_mode = ?
		AND schedule_time >= ? AND schedule_time < ?
		ORDER BY CASE WHEN end_time IS NULL THEN 1 ELSE 0 END, end_time DESC, id DESC LIMIT 1`
	return r.getProcessInstance(ctx, query,
		definitionID, string(types.RunModeScheduler), utc(interval.StartTime), utc(interval.EndTime))
}

// FindLastManualProcessInterval 查询结束时间落在区间内、最晚结束的手动触发实例
func (r *HistoryRepo) FindLastManualProcessInterval(ctx context.Context, definitionID int64, interval dateutil.DateInterval) (*storage.ProcessInstance, error) {
	query := `SELECT ` + processInstanceColumns + ` FROM process_instance
		WHERE process_definition_id = ? AND run_mode = ?
		AND end_time >= ? AND end_time < ?
		ORDER BY end_time DESC, id DESC LIMIT 1`
	return r.getProcessInstance(ctx, query,
		definitionID, string(types.RunModeManual), utc(interval.StartTime), utc(interval.EndTime))
}

// FindValidTaskListByProcessID 查询流程实例下所有有效的任务实例
func (r *HistoryRepo) FindValidTaskListByProcessID(ctx context.Context, processInstanceID int64) ([]*storage.TaskInstance, error) {
	var taskDAOs []dao.TaskInstanceDAO
	query := r.db.Rebind(`SELECT ` + taskInstanceColumns + ` FROM task_instance
		WHERE process_instance_id = ? AND flag = ?
		ORDER BY start_time DESC, id DESC`)
	if err := r.db.SelectContext(ctx, &taskDAOs, query, processInstanceID, int(types.FlagYes)); err != nil {
		return nil, fmt.Errorf("查询任务实例失败: %w", err)
	}

	tasks := make([]*storage.TaskInstance, 0, len(taskDAOs))
	for i := range taskDAOs {
		tasks = append(tasks, taskDAOToTaskInstance(&taskDAOs[i]))
	}
	return tasks, nil
}

// getProcessInstance 执行单条流程实例查询，无记录时返回(nil, nil)
func (r *HistoryRepo) getProcessInstance(ctx context.Context, query string, args ...interface{}) (*storage.ProcessInstance, error) {
	var instDAO dao.ProcessInstanceDAO
	if err := r.db.GetContext(ctx, &instDAO, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询流程实例失败: %w", err)
	}
	return processDAOToInstance(&instDAO), nil
}

// ========== 写操作 ==========

// SaveProcessInstance 保存流程实例
func (r *HistoryRepo) SaveProcessInstance(ctx context.Context, inst *storage.ProcessInstance) error {
	if inst == nil || inst.ID <= 0 {
		return fmt.Errorf("流程实例ID无效")
	}
	instDAO := &dao.ProcessInstanceDAO{
		ID:                  inst.ID,
		ProcessDefinitionID: inst.ProcessDefinitionID,
		Name:                inst.Name,
		State:               string(inst.State),
		RunMode:             string(inst.RunMode),
		ScheduleTime:        nullTime(inst.ScheduleTime),
		StartTime:           utc(inst.StartTime),
		EndTime:             nullTime(inst.EndTime),
	}

	columns := strings.Split(processInstanceColumns, ", ")
	query := r.dialect.UpsertSQL(processInstanceTable, columns, "id", columns[1:])
	if _, err := r.db.NamedExecContext(ctx, query, instDAO); err != nil {
		return fmt.Errorf("保存流程实例失败: %w", err)
	}
	return nil
}

// SaveTaskInstance 保存任务实例
func (r *HistoryRepo) SaveTaskInstance(ctx context.Context, task *storage.TaskInstance) error {
	if task == nil || task.ID <= 0 {
		return fmt.Errorf("任务实例ID无效")
	}
	taskDAO := &dao.TaskInstanceDAO{
		ID:                task.ID,
		Name:              task.Name,
		ProcessInstanceID: task.ProcessInstanceID,
		State:             string(task.State),
		Flag:              int(task.Flag),
		StartTime:         utc(task.StartTime),
		EndTime:           nullTime(task.EndTime),
	}

	columns := strings.Split(taskInstanceColumns, ", ")
	query := r.dialect.UpsertSQL(taskInstanceTable, columns, "id", columns[1:])
	if _, err := r.db.NamedExecContext(ctx, query, taskDAO); err != nil {
		return fmt.Errorf("保存任务实例失败: %w", err)
	}
	return nil
}

// ========== DAO转换 ==========

func processDAOToInstance(d *dao.ProcessInstanceDAO) *storage.ProcessInstance {
	inst := &storage.ProcessInstance{
		ID:                  d.ID,
		ProcessDefinitionID: d.ProcessDefinitionID,
		Name:                d.Name,
		State:               types.ExecutionStatus(d.State),
		RunMode:             types.RunMode(d.RunMode),
		StartTime:           d.StartTime,
	}
	if d.ScheduleTime.Valid {
		t := d.ScheduleTime.Time
		inst.ScheduleTime = &t
	}
	if d.EndTime.Valid {
		t := d.EndTime.Time
		inst.EndTime = &t
	}
	return inst
}

func taskDAOToTaskInstance(d *dao.TaskInstanceDAO) *storage.TaskInstance {
	task := &storage.TaskInstance{
		ID:                d.ID,
		Name:              d.Name,
		ProcessInstanceID: d.ProcessInstanceID,
		State:             types.ExecutionStatus(d.State),
		Flag:              types.Flag(d.Flag),
		StartTime:         d.StartTime,
	}
	if d.EndTime.Valid {
		t := d.EndTime.Time
		task.EndTime = &t
	}
	return task
}

// 统一按UTC存取，保证SQLite文本时间可按字典序比较
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ storage.ProcessHistoryRepository = (*HistoryRepo)(nil)
