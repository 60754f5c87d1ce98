package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var processInstanceColumns = strings.Split("id, process_definition_id, name, state, run_mode, schedule_time, start_time, end_time", ", ")

func TestInsertSQL(t *testing.T) {
	assert.Equal(t, "INSERT INTO t (id) VALUES (:id)", InsertSQL("t", []string{"id"}))
	assert.Equal(t, "INSERT INTO t (id, name) VALUES (:id, :name)", InsertSQL("t", []string{"id", "name"}))
}

func TestOnConflictUpsertSQL_ProcessInstance(t *testing.T) {
	got := OnConflictUpsertSQL("process_instance", processInstanceColumns, "id", processInstanceColumns[1:])
	assert.Equal(t,
		"INSERT INTO process_instance (id, process_definition_id, name, state, run_mode, schedule_time, start_time, end_time) "+
			"VALUES (:id, :process_definition_id, :name, :state, :run_mode, :schedule_time, :start_time, :end_time) "+
			"ON CONFLICT (id) DO UPDATE SET process_definition_id = excluded.process_definition_id, name = excluded.name, "+
			"state = excluded.state, run_mode = excluded.run_mode, schedule_time = excluded.schedule_time, "+
			"start_time = excluded.start_time, end_time = excluded.end_time",
		got)
	assert.NotContains(t, got, "id = excluded.id")
}
