package config

import (
	"errors"
	"fmt"
	"strings"
)

// ContextPlaceholder TEMPLATE 中被工具结果替换的占位符
const ContextPlaceholder = "{{CONTEXT}}"

// 工具集
const (
	ToolsetTools   = "tools"
	ToolsetKubectl = "kubectl"
)

// 任务模型提供商
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// DefaultTemplate 默认的系统消息模板
const DefaultTemplate = `Use the following context as your learned knowledge, inside <context></context> XML tags.
<context>
    {{CONTEXT}}
</context>

When answering the user:
- If you don't know, just say that you don't know.
- If you are not sure, ask for clarification.
Avoid mentioning that you obtained the information from the context.
Answer according to the language of the user's question.`

// Config 根配置结构
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Filters  []FilterConfig `json:"filters" yaml:"filters"`
	Tools    ToolsConfig    `json:"tools" yaml:"tools"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"` // 为空时不校验 Bearer token
}

// ProviderConfig 任务模型提供商配置
type ProviderConfig struct {
	Kind    string `json:"kind" yaml:"kind"`                         // ollama | openai
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"` // 仅 openai 使用
	Timeout int    `json:"timeout" yaml:"timeout"`                   // 单次调用超时（秒）
}

// FilterConfig 单个过滤器配置
type FilterConfig struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Toolset string `json:"toolset" yaml:"toolset"` // tools | kubectl
	Valves  Valves `json:"valves" yaml:"valves"`
}

// Valves 过滤器阀门，字段名与管道宿主保持一致
type Valves struct {
	// 过滤器挂载的上游管道 id，["*"] 表示全部
	Pipelines []string `json:"pipelines" yaml:"pipelines"`
	// 数值越小越先执行
	Priority         int    `json:"priority" yaml:"priority"`
	OllamaAPIBaseURL string `json:"OLLAMA_API_BASE_URL" yaml:"OLLAMA_API_BASE_URL"`
	TaskModel        string `json:"TASK_MODEL" yaml:"TASK_MODEL"`
	Template         string `json:"TEMPLATE" yaml:"TEMPLATE"`
}

// WeatherToolConfig 天气工具配置
type WeatherToolConfig struct {
	BaseURL string `json:"baseURL" yaml:"baseURL"`
	Timeout int    `json:"timeout" yaml:"timeout"`
}

// ExecToolConfig Shell 执行工具配置
type ExecToolConfig struct {
	Timeout    int    `json:"timeout" yaml:"timeout"`
	WorkingDir string `json:"workingDir,omitempty" yaml:"workingDir,omitempty"`
	MaxOutput  int    `json:"maxOutput" yaml:"maxOutput"`
}

// ToolsConfig 工具配置
type ToolsConfig struct {
	Weather WeatherToolConfig `json:"weather" yaml:"weather"`
	Exec    ExecToolConfig    `json:"exec" yaml:"exec"`
}

// DefaultValves 返回默认阀门
func DefaultValves() Valves {
	return Valves{
		Pipelines:        []string{"*"},
		Priority:         0,
		OllamaAPIBaseURL: "http://ollama.ollama.svc.cluster.local:11434",
		TaskModel:        "llama3:instruct",
		Template:         DefaultTemplate,
	}
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9099,
		},
		Provider: ProviderConfig{
			Kind:    ProviderOllama,
			Timeout: 60,
		},
		Filters: []FilterConfig{
			{
				ID:      "my_tools_pipeline",
				Name:    "My Tools Pipeline",
				Enabled: true,
				Toolset: ToolsetTools,
				Valves:  DefaultValves(),
			},
			{
				// 会在宿主机执行任意命令，需显式启用
				ID:      "kubectl_pipeline",
				Name:    "Kubectl Pipeline",
				Enabled: false,
				Toolset: ToolsetKubectl,
				Valves:  DefaultValves(),
			},
		},
		Tools: ToolsConfig{
			Weather: WeatherToolConfig{
				BaseURL: "http://wttr.in",
				Timeout: 15,
			},
			Exec: ExecToolConfig{
				Timeout:   10,
				MaxOutput: 10000,
			},
		},
	}
}

// Filter 按 id 查找过滤器配置
func (c *Config) Filter(id string) (*FilterConfig, bool) {
	for i := range c.Filters {
		if c.Filters[i].ID == id {
			return &c.Filters[i], true
		}
	}
	return nil, false
}

// EnabledFilters 返回启用的过滤器
func (c *Config) EnabledFilters() []FilterConfig {
	var out []FilterConfig
	for _, f := range c.Filters {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Kind {
	case ProviderOllama, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("未知的 provider.kind: %q", c.Provider.Kind))
	}

	seen := make(map[string]bool)
	for _, f := range c.Filters {
		if f.ID == "" {
			errs = append(errs, errors.New("过滤器 id 不能为空"))
			continue
		}
		if seen[f.ID] {
			errs = append(errs, fmt.Errorf("过滤器 id 重复: %s", f.ID))
		}
		seen[f.ID] = true
		if !f.Enabled {
			continue
		}
		if err := f.validate(); err != nil {
			errs = append(errs, fmt.Errorf("过滤器 %s: %w", f.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (f *FilterConfig) validate() error {
	switch f.Toolset {
	case ToolsetTools, ToolsetKubectl:
	default:
		return fmt.Errorf("未知的 toolset: %q", f.Toolset)
	}
	if f.Valves.OllamaAPIBaseURL == "" {
		return errors.New("OLLAMA_API_BASE_URL 不能为空")
	}
	if f.Valves.TaskModel == "" {
		return errors.New("TASK_MODEL 不能为空")
	}
	if !strings.Contains(f.Valves.Template, ContextPlaceholder) {
		return fmt.Errorf("TEMPLATE 缺少占位符 %s", ContextPlaceholder)
	}
	return nil
}
