package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// 启动时读取一次的环境变量
const (
	EnvOllamaBaseURL = "OLLAMA_API_BASE_URL"
	EnvTaskModel     = "TASK_MODEL"
	EnvAPIKey        = "FCPIPE_API_KEY"
)

// GetConfigPath 获取默认配置文件路径
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fcpipe", "config.json")
}

// LoadConfig 加载配置文件，文件不存在时使用默认配置
// 读取后应用环境变量覆盖并校验
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(expandPath(path))
	switch {
	case err == nil:
		defaults := cfg.Filters
		cfg.Filters = nil
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
		if cfg.Filters == nil {
			cfg.Filters = defaults
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.normalize()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig 保存配置文件，格式由扩展名决定
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	path = expandPath(path)

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv 用环境变量覆盖所有过滤器的阀门
func (c *Config) ApplyEnv(getenv func(string) string) {
	baseURL := getenv(EnvOllamaBaseURL)
	model := getenv(EnvTaskModel)
	for i := range c.Filters {
		if baseURL != "" {
			c.Filters[i].Valves.OllamaAPIBaseURL = baseURL
		}
		if model != "" {
			c.Filters[i].Valves.TaskModel = model
		}
	}
	if key := getenv(EnvAPIKey); key != "" {
		c.Server.APIKey = key
	}
}

// normalize 为配置文件中省略的阀门字段补默认值
func (c *Config) normalize() {
	defaults := DefaultValves()
	for i := range c.Filters {
		f := &c.Filters[i]
		if f.Name == "" {
			f.Name = f.ID
		}
		if f.Toolset == "" {
			f.Toolset = ToolsetTools
		}
		if f.Valves.Pipelines == nil {
			f.Valves.Pipelines = defaults.Pipelines
		}
		if f.Valves.OllamaAPIBaseURL == "" {
			f.Valves.OllamaAPIBaseURL = defaults.OllamaAPIBaseURL
		}
		if f.Valves.TaskModel == "" {
			f.Valves.TaskModel = defaults.TaskModel
		}
		if f.Valves.Template == "" {
			f.Valves.Template = defaults.Template
		}
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = ProviderOllama
	}
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// expandPath 展开路径中的 ~ 为用户主目录
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
