package config

import (
	"fmt"
	"time"
)

// Validate 校验服务配置合法性
func (c *EngineConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("配置不能为空")
	}

	// 校验General
	if c.DependentEngine.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	if c.DependentEngine.General.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[c.DependentEngine.General.LogLevel] {
			return fmt.Errorf("log_level必须是debug/info/warn/error之一")
		}
	}

	// 校验Storage.Database
	db := c.DependentEngine.Storage.Database
	if db.Type == "" {
		return fmt.Errorf("database.type不能为空")
	}
	validDBTypes := map[string]bool{
		"sqlite":     true,
		"postgres":   true,
		"postgresql": true,
		"mysql":      true,
		"memory":     true,
	}
	if !validDBTypes[db.Type] {
		return fmt.Errorf("database.type必须是sqlite/postgres/mysql/memory之一")
	}
	if db.DSN == "" && db.Type != "memory" {
		return fmt.Errorf("database.dsn不能为空")
	}
	if db.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns必须大于0")
	}
	if db.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns不能为负数")
	}

	// 校验Dependent
	if c.DependentEngine.Dependent.PollInterval < time.Second {
		return fmt.Errorf("dependent.poll_interval不能小于1s")
	}
	if c.DependentEngine.Dependent.Timeout < 0 {
		return fmt.Errorf("dependent.timeout不能为负数")
	}
	names := make(map[string]bool)
	for i, d := range c.DependentEngine.Dependent.Declarations {
		if d.Name == "" {
			return fmt.Errorf("declarations[%d].name不能为空", i)
		}
		if names[d.Name] {
			return fmt.Errorf("declarations中存在重复的name: %s", d.Name)
		}
		names[d.Name] = true

		if (d.File == "") == (d.Spec == nil) {
			return fmt.Errorf("declarations[%d]必须且只能指定file或spec之一", i)
		}
		if d.Date != "" {
			if _, err := time.Parse(time.DateOnly, d.Date); err != nil {
				return fmt.Errorf("declarations[%d].date格式无效(应为YYYY-MM-DD): %s", i, d.Date)
			}
		}
		if d.PollInterval > 0 && d.PollInterval < time.Second {
			return fmt.Errorf("declarations[%d].poll_interval不能小于1s", i)
		}
	}

	// 校验API
	if c.IsAPIEnabled() {
		if c.DependentEngine.API.Port <= 0 || c.DependentEngine.API.Port > 65535 {
			return fmt.Errorf("api.port必须在1-65535之间")
		}
	}

	return nil
}
