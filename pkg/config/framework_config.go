package config

import (
	"fmt"
	"time"
)

// EngineConfig 依赖检查服务配置（对外导出）
type EngineConfig struct {
	DependentEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
		} `yaml:"storage"`
		Dependent struct {
			PollInterval time.Duration     `yaml:"poll_interval"`
			Timeout      time.Duration     `yaml:"timeout"`
			Declarations []WatchDefinition `yaml:"declarations"`
		} `yaml:"dependent"`
		API struct {
			Enabled      *bool         `yaml:"enabled"`
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"api"`
	} `yaml:"dependent-engine"`
}

// WatchDefinition 服务启动时注册的依赖监听
// File 与 Spec 二选一：File 指向依赖声明文件，Spec 为内联声明
type WatchDefinition struct {
	Name         string           `yaml:"name"`
	File         string           `yaml:"file"`
	Spec         *DependentConfig `yaml:"spec"`
	Date         string           `yaml:"date"` // 业务日期（2006-01-02），为空时取注册时间
	Timeout      time.Duration    `yaml:"timeout"`
	PollInterval time.Duration    `yaml:"poll_interval"`
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.DependentEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.DependentEngine.Storage.Database.DSN
}

// GetPollInterval 获取默认轮询间隔
func (c *EngineConfig) GetPollInterval() time.Duration {
	interval := c.DependentEngine.Dependent.PollInterval
	if interval <= 0 {
		return 30 * time.Second // 默认值
	}
	return interval
}

// GetAPIAddress 获取API监听地址
func (c *EngineConfig) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.DependentEngine.API.Host, c.DependentEngine.API.Port)
}

// IsAPIEnabled API是否启用（未配置时默认启用）
func (c *EngineConfig) IsAPIEnabled() bool {
	return c.DependentEngine.API.Enabled == nil || *c.DependentEngine.API.Enabled
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.DependentEngine.General.InstanceName == "" {
		c.DependentEngine.General.InstanceName = "dependent-engine"
	}
	if c.DependentEngine.General.LogLevel == "" {
		c.DependentEngine.General.LogLevel = "info"
	}
	if c.DependentEngine.General.Env == "" {
		c.DependentEngine.General.Env = "dev"
	}

	// Database默认值
	if c.DependentEngine.Storage.Database.Type == "" {
		c.DependentEngine.Storage.Database.Type = "sqlite"
	}
	if c.DependentEngine.Storage.Database.DSN == "" && c.DependentEngine.Storage.Database.Type == "sqlite" {
		c.DependentEngine.Storage.Database.DSN = "./data/dependent-engine.db"
	}
	if c.DependentEngine.Storage.Database.MaxOpenConns <= 0 {
		c.DependentEngine.Storage.Database.MaxOpenConns = 10
	}
	if c.DependentEngine.Storage.Database.MaxIdleConns <= 0 {
		c.DependentEngine.Storage.Database.MaxIdleConns = 5
	}
	if c.DependentEngine.Storage.Database.ConnMaxLifetime <= 0 {
		c.DependentEngine.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.DependentEngine.Storage.Database.ConnMaxIdleTime <= 0 {
		c.DependentEngine.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Dependent默认值
	if c.DependentEngine.Dependent.PollInterval <= 0 {
		c.DependentEngine.Dependent.PollInterval = 30 * time.Second
	}
	for i := range c.DependentEngine.Dependent.Declarations {
		d := &c.DependentEngine.Dependent.Declarations[i]
		if d.PollInterval <= 0 {
			d.PollInterval = c.DependentEngine.Dependent.PollInterval
		}
		if d.Timeout <= 0 {
			d.Timeout = c.DependentEngine.Dependent.Timeout
		}
	}

	// API默认值
	if c.DependentEngine.API.Host == "" {
		c.DependentEngine.API.Host = "0.0.0.0"
	}
	if c.DependentEngine.API.Port <= 0 {
		c.DependentEngine.API.Port = 8080
	}
	if c.DependentEngine.API.ReadTimeout <= 0 {
		c.DependentEngine.API.ReadTimeout = 30 * time.Second
	}
	if c.DependentEngine.API.WriteTimeout <= 0 {
		c.DependentEngine.API.WriteTimeout = 30 * time.Second
	}
}
