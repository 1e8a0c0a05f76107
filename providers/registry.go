// Package providers 根据配置创建工具选择所用的任务模型
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/weibaohui/fcpipe/config"
)

var (
	ErrUnknownKind = errors.New("未知的任务模型提供商")
	ErrEmptyModel  = errors.New("TASK_MODEL 不能为空")
)

// openaiPlaceholderKey Ollama 的 OpenAI 兼容接口不校验 key，但客户端要求非空
const openaiPlaceholderKey = "ollama"

// Target 一次模型创建所需的连接信息
type Target struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

type builder func(ctx context.Context, t Target) (model.BaseChatModel, error)

// ProviderSpec 提供商规格定义
type ProviderSpec struct {
	Name        string
	DisplayName string
	build       builder
}

// Label 返回提供商显示标签
func (s *ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Providers 支持的提供商列表
var Providers = []ProviderSpec{
	{
		// 原生 /api/chat，stream=false
		Name:        config.ProviderOllama,
		DisplayName: "Ollama",
		build:       buildOllama,
	},
	{
		// OLLAMA_API_BASE_URL 下的 /v1 兼容接口，或任意 OpenAI 兼容服务
		Name:        config.ProviderOpenAI,
		DisplayName: "OpenAI Compatible",
		build:       buildOpenAI,
	},
}

// FindByName 通过名称查找提供商
func FindByName(name string) *ProviderSpec {
	for i := range Providers {
		if Providers[i].Name == name {
			return &Providers[i]
		}
	}
	return nil
}

// NewTaskModel 为一个过滤器的阀门创建任务模型
func NewTaskModel(ctx context.Context, cfg config.ProviderConfig, valves config.Valves) (model.BaseChatModel, error) {
	spec := FindByName(cfg.Kind)
	if spec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	if valves.TaskModel == "" {
		return nil, ErrEmptyModel
	}

	t := Target{
		BaseURL: strings.TrimRight(valves.OllamaAPIBaseURL, "/"),
		Model:   valves.TaskModel,
		APIKey:  cfg.APIKey,
	}
	if cfg.Timeout > 0 {
		t.Timeout = time.Duration(cfg.Timeout) * time.Second
	}

	m, err := spec.build(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("创建 %s 模型失败: %w", spec.Label(), err)
	}
	return m, nil
}

func buildOllama(ctx context.Context, t Target) (model.BaseChatModel, error) {
	return einoOllama.NewChatModel(ctx, &einoOllama.ChatModelConfig{
		BaseURL: t.BaseURL,
		Model:   t.Model,
		Timeout: t.Timeout,
	})
}

func buildOpenAI(ctx context.Context, t Target) (model.BaseChatModel, error) {
	apiKey := t.APIKey
	if apiKey == "" {
		apiKey = openaiPlaceholderKey
	}
	baseURL := t.BaseURL
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   t.Model,
		BaseURL: baseURL,
		Timeout: t.Timeout,
	})
}
