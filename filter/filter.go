package filter

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/weibaohui/fcpipe/config"
	"github.com/weibaohui/fcpipe/tools"
	"github.com/weibaohui/fcpipe/tracing"
	"go.uber.org/zap"
)

// TypeFilter 管道宿主识别的组件类型
const TypeFilter = "filter"

var (
	ErrNilRegistry = errors.New("工具注册表不能为空")
	ErrNilModel    = errors.New("任务模型不能为空")
)

// Options 创建过滤器的参数
type Options struct {
	ID       string
	Name     string
	Valves   config.Valves
	Registry *tools.Registry
	// Model 用于工具选择的任务模型
	Model    model.BaseChatModel
	// Handlers 任务模型调用的 eino 回调
	Handlers []callbacks.Handler
	Logger   *zap.Logger
}

// Filter 函数调用过滤器
// 创建后只读，可被并发请求共享
type Filter struct {
	id       string
	name     string
	valves   config.Valves
	registry *tools.Registry
	model    model.BaseChatModel
	handlers []callbacks.Handler
	logger   *zap.Logger
}

// New 创建过滤器
func New(opts Options) (*Filter, error) {
	if opts.Registry == nil {
		return nil, ErrNilRegistry
	}
	if opts.Model == nil {
		return nil, ErrNilModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = opts.ID
	}
	valves := opts.Valves
	valves.Pipelines = slices.Clone(valves.Pipelines)

	return &Filter{
		id:       opts.ID,
		name:     name,
		valves:   valves,
		registry: opts.Registry,
		model:    opts.Model,
		handlers: slices.Clone(opts.Handlers),
		logger:   logger.With(zap.String("filter", opts.ID)),
	}, nil
}

// ID 返回过滤器 id
func (f *Filter) ID() string { return f.id }

// Name 返回过滤器名称
func (f *Filter) Name() string { return f.name }

// Valves 返回阀门副本
func (f *Filter) Valves() config.Valves {
	v := f.valves
	v.Pipelines = slices.Clone(f.valves.Pipelines)
	return v
}

// Registry 返回工具注册表
func (f *Filter) Registry() *tools.Registry { return f.registry }

// AppliesTo 判断过滤器是否挂载在指定的上游管道上
func (f *Filter) AppliesTo(pipelineID string) bool {
	for _, p := range f.valves.Pipelines {
		if p == "*" || p == pipelineID {
			return true
		}
	}
	return false
}

// OnStartup 服务启动时调用
func (f *Filter) OnStartup(ctx context.Context) error {
	f.logger.Info("过滤器启动",
		zap.String("name", f.name),
		zap.Strings("tools", f.registry.Names()),
		zap.String("task_model", f.valves.TaskModel),
	)
	return nil
}

// OnShutdown 服务停止时调用
func (f *Filter) OnShutdown(ctx context.Context) error {
	f.logger.Info("过滤器停止", zap.String("name", f.name))
	return nil
}

// Outlet 主模型回复后调用，原样返回
func (f *Filter) Outlet(ctx context.Context, body *Body, user map[string]any) *Body {
	return body
}

// Inlet 在请求到达主模型前选择并执行工具
// 任何一步失败或没有匹配的工具时原样返回 body；成功时返回替换了系统消息的新请求，不修改 body
func (f *Filter) Inlet(ctx context.Context, body *Body, user map[string]any) *Body {
	if body == nil {
		return nil
	}
	// 标题生成请求不触发工具调用
	if body.Title {
		return body
	}
	f.logger.Debug("处理请求", zap.Any("user", user))

	outcome, err := f.selectAndInvoke(ctx, body)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSelection):
			f.logger.Debug("模型未选择工具")
		case errors.Is(err, tools.ErrUnknownTool):
			f.logger.Warn("模型选择了未注册的工具", zap.Error(err))
		default:
			f.logger.Warn("工具选择失败，原样透传", zap.Error(err))
		}
		return body
	}
	if outcome == "" {
		return body
	}

	systemPrompt := RenderTemplate(f.valves.Template, config.ContextPlaceholder, outcome)
	f.logger.Debug("注入系统消息", zap.String("system_prompt", systemPrompt))

	out := body.Clone()
	out.Messages = AddOrUpdateSystemMessage(systemPrompt, out.Messages)
	return out
}

// selectAndInvoke 询问任务模型并执行选中的工具，返回工具结果
func (f *Filter) selectAndInvoke(ctx context.Context, body *Body) (string, error) {
	query, ok := GetLastUserMessage(body.Messages)
	if !ok {
		f.logger.Debug("请求中没有用户消息")
	}

	prompt, err := BuildSelectionPrompt(f.registry.Describe())
	if err != nil {
		return "", fmt.Errorf("构建工具列表失败: %w", err)
	}
	input := []*schema.Message{
		schema.SystemMessage(prompt),
		schema.UserMessage(BuildSelectionQuery(body.Messages, query, HistoryLimit)),
	}

	mctx := ctx
	if len(f.handlers) > 0 {
		mctx = tracing.Start(ctx, f.id, f.valves.TaskModel, components.ComponentOfChatModel, f.handlers...)
	}
	resp, err := f.model.Generate(mctx, input)
	if err != nil {
		return "", fmt.Errorf("调用任务模型失败: %w", err)
	}
	if resp == nil {
		return "", ErrNoSelection
	}
	f.logger.Debug("任务模型回复", zap.String("content", resp.Content))

	sel, err := ParseSelection(resp.Content)
	if err != nil {
		return "", err
	}
	if _, err := f.registry.Resolve(sel.Name); err != nil {
		return "", err
	}

	outcome := f.registry.Invoke(ctx, sel.Name, sel.Parameters)
	f.logger.Debug("工具执行完成",
		zap.String("tool", sel.Name),
		zap.Int("outcome_len", len(outcome)),
	)
	return outcome, nil
}
