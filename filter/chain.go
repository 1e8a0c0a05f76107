package filter

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Chain 按优先级排列的过滤器链，priority 越小越先执行
type Chain struct {
	filters []*Filter
	logger  *zap.Logger
}

// NewChain 创建过滤器链，相同优先级保持传入顺序
func NewChain(logger *zap.Logger, filters ...*Filter) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := append([]*Filter(nil), filters...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].valves.Priority < sorted[j].valves.Priority
	})
	return &Chain{filters: sorted, logger: logger}
}

// Filters 按执行顺序返回所有过滤器
func (c *Chain) Filters() []*Filter {
	return append([]*Filter(nil), c.filters...)
}

// Len 返回过滤器数量
func (c *Chain) Len() int {
	return len(c.filters)
}

// Get 按 id 查找过滤器
func (c *Chain) Get(id string) (*Filter, bool) {
	for _, f := range c.filters {
		if f.id == id {
			return f, true
		}
	}
	return nil, false
}

// ForModel 返回挂载在指定上游管道上的过滤器
func (c *Chain) ForModel(pipelineID string) []*Filter {
	var out []*Filter
	for _, f := range c.filters {
		if f.AppliesTo(pipelineID) {
			out = append(out, f)
		}
	}
	return out
}

// Inlet 依次执行适用于 body.Model 的过滤器
func (c *Chain) Inlet(ctx context.Context, body *Body, user map[string]any) *Body {
	if body == nil {
		return nil
	}
	for _, f := range c.ForModel(body.Model) {
		body = f.Inlet(ctx, body, user)
	}
	return body
}

// Outlet 依次执行适用于 body.Model 的过滤器的 Outlet
func (c *Chain) Outlet(ctx context.Context, body *Body, user map[string]any) *Body {
	if body == nil {
		return nil
	}
	for _, f := range c.ForModel(body.Model) {
		body = f.Outlet(ctx, body, user)
	}
	return body
}

// OnStartup 启动所有过滤器
func (c *Chain) OnStartup(ctx context.Context) {
	for _, f := range c.filters {
		if err := f.OnStartup(ctx); err != nil {
			c.logger.Error("过滤器启动失败", zap.String("filter", f.id), zap.Error(err))
		}
	}
}

// OnShutdown 按相反顺序停止所有过滤器
func (c *Chain) OnShutdown(ctx context.Context) {
	for i := len(c.filters) - 1; i >= 0; i-- {
		f := c.filters[i]
		if err := f.OnShutdown(ctx); err != nil {
			c.logger.Error("过滤器停止失败", zap.String("filter", f.id), zap.Error(err))
		}
	}
}
