package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadEngineConfig 加载服务配置文件，应用默认值并校验
// 声明中的相对文件路径按配置文件所在目录解析
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}

	baseDir := filepath.Dir(path)
	for i := range cfg.DependentEngine.Dependent.Declarations {
		d := &cfg.DependentEngine.Dependent.Declarations[i]
		if d.File != "" && !filepath.IsAbs(d.File) {
			d.File = filepath.Join(baseDir, d.File)
		}
	}
	return &cfg, nil
}

// LoadDependentConfig 加载依赖声明文件
func LoadDependentConfig(path string) (*DependentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取依赖声明文件失败: %w", err)
	}
	return ParseDependentConfig(data)
}

// ParseDependentConfig 解析YAML格式的依赖声明
func ParseDependentConfig(data []byte) (*DependentConfig, error) {
	var cfg DependentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析依赖声明失败: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
