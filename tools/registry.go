// Package tools 维护可被过滤器调用的工具注册表
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tracing"
	"go.uber.org/zap"
)

var (
	ErrUnknownTool   = errors.New("工具不存在")
	ErrDuplicateTool = errors.New("工具已注册")
	ErrEmptyName     = errors.New("工具名称为空")
)

type entry struct {
	tool tool.InvokableTool
	spec ToolSpec
}

// Registry 工具注册表，按注册顺序保存工具
type Registry struct {
	tools    map[string]*entry
	order    []string
	handlers []callbacks.Handler
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRegistry 创建工具注册表
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*entry),
		logger: logger,
	}
}

// Register 注册工具，ToolSpec 在注册时推导并固定
func (r *Registry) Register(ctx context.Context, t tool.InvokableTool) error {
	info, err := infoOf(ctx, t)
	if err != nil {
		return err
	}
	spec, err := specFromInfo(info)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	r.tools[spec.Name] = &entry{tool: t, spec: spec}
	r.order = append(r.order, spec.Name)
	return nil
}

// Use 添加工具调用的 eino 回调
func (r *Registry) Use(handlers ...callbacks.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handlers...)
}

// Describe 按注册顺序返回所有工具描述
func (r *Registry) Describe() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Names 按注册顺序返回工具名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len 返回工具数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Resolve 查找工具
func (r *Registry) Resolve(name string) (tool.InvokableTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.tool, nil
}

// Invoke 以参数调用工具并返回结果
// 工具返回错误或 panic 时返回空字符串，调用方据此不修改对话
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (outcome string) {
	t, err := r.Resolve(name)
	if err != nil {
		r.logger.Warn("调用未注册的工具", zap.String("tool", name))
		return ""
	}

	if params == nil {
		params = map[string]any{}
	}
	args, err := json.Marshal(params)
	if err != nil {
		r.logger.Warn("序列化工具参数失败", zap.String("tool", name), zap.Error(err))
		return ""
	}

	r.mu.RLock()
	handlers := r.handlers
	r.mu.RUnlock()
	if len(handlers) > 0 {
		ctx = tracing.Start(ctx, name, "Function", components.ComponentOfTool, handlers...)
	}
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: string(args)})

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("工具执行 panic", zap.String("tool", name), zap.Any("panic", rec))
			callbacks.OnError(ctx, fmt.Errorf("工具 %s panic: %v", name, rec))
			outcome = ""
		}
	}()

	r.logger.Debug("执行工具", zap.String("tool", name), zap.ByteString("args", args))
	result, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		r.logger.Warn("工具执行失败", zap.String("tool", name), zap.Error(err))
		callbacks.OnError(ctx, err)
		return ""
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: result})
	return result
}
