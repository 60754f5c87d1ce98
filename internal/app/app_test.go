package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dependent-engine/pkg/config"
	"github.com/LENAX/dependent-engine/pkg/core/depend"
	"github.com/LENAX/dependent-engine/pkg/core/engine"
	"github.com/LENAX/dependent-engine/pkg/core/events"
	"github.com/LENAX/dependent-engine/pkg/core/types"
	"github.com/LENAX/dependent-engine/pkg/storage"
)

const appYAML = `
dependent-engine:
  storage:
    database:
      type: memory
  dependent:
    poll_interval: 1s
    declarations:
      - name: report-ready
        date: "2026-10-21"
        spec:
          depend_task_list:
            - depend_item_list:
                - key: report
                  definition_id: 7
                  cycle: day
                  date_value: today
      - name: from-file
        date: "2026-10-21"
        file: decl.yaml
  api:
    enabled: false
`

const appDecl = `
depend_task_list:
  - depend_item_list:
      - definition_id: 8
        cycle: day
        date_value: today
`

func loadConfig(t *testing.T) *config.EngineConfig {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decl.yaml"), []byte(appDecl), 0644))
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(appYAML), 0644))

	cfg, err := config.LoadEngineConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestApp_RegistersDeclarations(t *testing.T) {
	a, err := New(loadConfig(t), "test")
	require.NoError(t, err)
	defer a.Stop(context.Background())

	for _, name := range []string{"report-ready", "from-file"} {
		id, ok := a.WatchID(name)
		require.True(t, ok, name)
		info, err := a.Watcher().Get(id)
		require.NoError(t, err)
		assert.Equal(t, name, info.Name)
		assert.Equal(t, engine.WatchStateWatching, info.State)
		assert.Equal(t, 21, info.BusinessDate.Day())
		assert.Equal(t, time.Second, info.PollInterval)
	}
	assert.NoError(t, a.Ready(context.Background()))
}

func TestApp_FinishesAndPublishes(t *testing.T) {
	a, err := New(loadConfig(t), "test")
	require.NoError(t, err)

	// 业务日期按本地时区解析，实例时间取当天中午避免跨日
	noon := time.Date(2026, 10, 21, 12, 0, 0, 0, time.Local)
	end := noon.Add(time.Hour)
	require.NoError(t, a.History().SaveProcessInstance(context.Background(), &storage.ProcessInstance{
		ID:                  1,
		ProcessDefinitionID: 7,
		Name:                "report",
		State:               types.StatusSuccess,
		RunMode:             types.RunModeScheduler,
		ScheduleTime:        &noon,
		StartTime:           noon,
		EndTime:             &end,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished, err := a.Bus().Subscribe(ctx, events.EventFinished)
	require.NoError(t, err)

	require.NoError(t, a.Start(ctx))

	id, _ := a.WatchID("report-ready")
	timeout := time.After(5 * time.Second)
	for received := false; !received; {
		select {
		case event := <-finished:
			if event.WatchID != id {
				continue
			}
			received = true
			var payload events.FinishedPayload
			require.NoError(t, event.DecodePayload(&payload))
			assert.Equal(t, string(depend.DependResultSuccess), payload.Result)
			assert.Equal(t, map[string]string{"report": "SUCCESS"}, payload.Items)
		case <-timeout:
			t.Fatal("未收到依赖检查结束事件")
		}
	}

	info, err := a.Watcher().Get(id)
	require.NoError(t, err)
	assert.Equal(t, engine.WatchStateFinished, info.State)

	// 定义8没有执行记录，监听同样结束且结果为失败
	fileID, _ := a.WatchID("from-file")
	require.Eventually(t, func() bool {
		info, err := a.Watcher().Get(fileID)
		return err == nil && info.Result == depend.DependResultFailed
	}, 5*time.Second, 20*time.Millisecond)

	assert.NoError(t, a.Stop(context.Background()))
}

func TestApp_InvalidDeclaration(t *testing.T) {
	cfg := loadConfig(t)
	cfg.DependentEngine.Dependent.Declarations[1].File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, "test")
	assert.Error(t, err)
}
