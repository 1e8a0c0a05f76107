// Package tracing 用 eino 回调记录任务模型和工具的调用过程
package tracing

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type startKey struct{}

// Tracer eino 回调处理器
// 开始时间保存在 context 中，可被并发请求共享
type Tracer struct {
	logger *zap.Logger
}

// New 创建回调处理器
func New(logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger}
}

// Handler 返回 eino 的 Handler 接口实现
func (t *Tracer) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(t.onStart).
		OnEndFn(t.onEnd).
		OnErrorFn(t.onError).
		Build()
}

// Start 为一次组件调用初始化回调，返回的 context 需传给组件
func Start(ctx context.Context, name, typ string, component components.Component, handlers ...callbacks.Handler) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      typ,
		Component: component,
	}, handlers...)
}

func (t *Tracer) onStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	fields := []zap.Field{
		zap.String("component", string(info.Component)),
		zap.String("type", info.Type),
		zap.String("name", info.Name),
	}

	switch info.Component {
	case components.ComponentOfChatModel:
		if in := model.ConvCallbackInput(input); in != nil {
			fields = append(fields, zap.Int("message_count", len(in.Messages)))
			for _, msg := range in.Messages {
				if msg != nil && msg.Role == schema.User {
					fields = append(fields, zap.String("selection_query", msg.Content))
				}
			}
		}
	case components.ComponentOfTool:
		if in := tool.ConvCallbackInput(input); in != nil {
			fields = append(fields, zap.String("arguments", in.ArgumentsInJSON))
		}
	}

	t.logger.Debug("组件开始执行", fields...)
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (t *Tracer) onEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	fields := []zap.Field{
		zap.String("component", string(info.Component)),
		zap.String("name", info.Name),
		zap.Int64("duration_ms", elapsed(ctx).Milliseconds()),
	}

	switch info.Component {
	case components.ComponentOfChatModel:
		if out := model.ConvCallbackOutput(output); out != nil {
			if out.Message != nil {
				fields = append(fields, zap.String("content", out.Message.Content))
			}
			if out.TokenUsage != nil {
				fields = append(fields,
					zap.Int("prompt_tokens", out.TokenUsage.PromptTokens),
					zap.Int("completion_tokens", out.TokenUsage.CompletionTokens),
					zap.Int("total_tokens", out.TokenUsage.TotalTokens),
				)
			}
		}
	case components.ComponentOfTool:
		if out := tool.ConvCallbackOutput(output); out != nil {
			fields = append(fields, zap.Int("response_length", len(out.Response)))
		}
	}

	t.logger.Debug("组件执行完成", fields...)
	return ctx
}

func (t *Tracer) onError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	t.logger.Warn("组件执行出错",
		zap.Error(err),
		zap.String("component", string(info.Component)),
		zap.String("name", info.Name),
		zap.Int64("duration_ms", elapsed(ctx).Milliseconds()),
	)
	return ctx
}

func elapsed(ctx context.Context) time.Duration {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}
