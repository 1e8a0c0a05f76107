// Package pipelines 根据配置组装两类过滤器：
// tools 工具集（时间、天气、计算器）和 kubectl 工具集（kubectl、通用命令）
package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/config"
	"github.com/weibaohui/fcpipe/filter"
	"github.com/weibaohui/fcpipe/providers"
	"github.com/weibaohui/fcpipe/tools"
	"github.com/weibaohui/fcpipe/tools/calculator"
	"github.com/weibaohui/fcpipe/tools/clock"
	"github.com/weibaohui/fcpipe/tools/exec"
	"github.com/weibaohui/fcpipe/tools/kubectl"
	"github.com/weibaohui/fcpipe/tools/weather"
	"github.com/weibaohui/fcpipe/tracing"
	"go.uber.org/zap"
)

// ModelFactory 为过滤器创建任务模型
type ModelFactory func(ctx context.Context, cfg config.ProviderConfig, valves config.Valves) (model.BaseChatModel, error)

// Builder 过滤器组装器
type Builder struct {
	cfg      *config.Config
	logger   *zap.Logger
	newModel ModelFactory
	tracer   *tracing.Tracer
}

// NewBuilder 创建组装器
func NewBuilder(cfg *config.Config, logger *zap.Logger) *Builder {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		cfg:      cfg,
		logger:   logger,
		newModel: providers.NewTaskModel,
		tracer:   tracing.New(logger),
	}
}

// WithModelFactory 替换任务模型的创建方式
func (b *Builder) WithModelFactory(f ModelFactory) *Builder {
	if f != nil {
		b.newModel = f
	}
	return b
}

// Build 组装所有启用的过滤器
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*filter.Chain, error) {
	return NewBuilder(cfg, logger).Build(ctx)
}

// Build 组装所有启用的过滤器
func (b *Builder) Build(ctx context.Context) (*filter.Chain, error) {
	var filters []*filter.Filter
	for _, fc := range b.cfg.EnabledFilters() {
		f, err := b.Filter(ctx, fc)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	b.logger.Info("过滤器组装完成", zap.Int("count", len(filters)))
	return filter.NewChain(b.logger, filters...), nil
}

// Filter 组装单个过滤器，不检查 Enabled
func (b *Builder) Filter(ctx context.Context, fc config.FilterConfig) (*filter.Filter, error) {
	registry, err := b.Registry(ctx, fc.Toolset)
	if err != nil {
		return nil, fmt.Errorf("过滤器 %s: %w", fc.ID, err)
	}
	m, err := b.newModel(ctx, b.cfg.Provider, fc.Valves)
	if err != nil {
		return nil, fmt.Errorf("过滤器 %s: %w", fc.ID, err)
	}
	return filter.New(filter.Options{
		ID:       fc.ID,
		Name:     fc.Name,
		Valves:   fc.Valves,
		Registry: registry,
		Model:    m,
		Handlers: []callbacks.Handler{b.tracer.Handler()},
		Logger:   b.logger,
	})
}

// Registry 按工具集创建工具注册表
func (b *Builder) Registry(ctx context.Context, toolset string) (*tools.Registry, error) {
	var builders []func() (tool.InvokableTool, error)
	switch toolset {
	case config.ToolsetTools, "":
		w := b.cfg.Tools.Weather
		builders = []func() (tool.InvokableTool, error){
			(&clock.Tool{}).Invokable,
			weather.New(w.BaseURL, seconds(w.Timeout)).Invokable,
			(&calculator.Tool{}).Invokable,
		}
	case config.ToolsetKubectl:
		runner := b.runner()
		builders = []func() (tool.InvokableTool, error){
			(&kubectl.Tool{Runner: runner}).Invokable,
			(&exec.Tool{Runner: runner}).Invokable,
		}
	default:
		return nil, fmt.Errorf("未知的 toolset: %q", toolset)
	}

	registry := tools.NewRegistry(b.logger)
	registry.Use(b.tracer.Handler())
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, fmt.Errorf("创建工具失败: %w", err)
		}
		if err := registry.Register(ctx, t); err != nil {
			return nil, fmt.Errorf("注册工具失败: %w", err)
		}
	}
	return registry, nil
}

func (b *Builder) runner() *exec.Runner {
	c := b.cfg.Tools.Exec
	return &exec.Runner{
		Timeout:    seconds(c.Timeout),
		WorkingDir: c.WorkingDir,
		MaxOutput:  c.MaxOutput,
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
