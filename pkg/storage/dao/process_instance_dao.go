package dao

import (
	"database/sql"
	"time"
)

// ProcessInstanceDAO process_instance表的数据访问对象（内部使用）
type ProcessInstanceDAO struct {
	ID                  int64        `db:"id"`
	ProcessDefinitionID int64        `db:"process_definition_id"`
	Name                string       `db:"name"`
	State               string       `db:"state"`
	RunMode             string       `db:"run_mode"`
	ScheduleTime        sql.NullTime `db:"schedule_time"`
	StartTime           time.Time    `db:"start_time"`
	EndTime             sql.NullTime `db:"end_time"`
}

// TaskInstanceDAO task_instance表的数据访问对象（内部使用）
type TaskInstanceDAO struct {
	ID                int64        `db:"id"`
	Name              string       `db:"name"`
	ProcessInstanceID int64        `db:"process_instance_id"`
	State             string       `db:"state"`
	Flag              int          `db:"flag"`
	StartTime         time.Time    `db:"start_time"`
	EndTime           sql.NullTime `db:"end_time"`
}
