// Package clock 提供当前时间工具
package clock

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tools/common"
)

// Name 工具名称
const Name = "get_current_time"

// Tool 当前时间工具
type Tool struct {
	// Now 时间来源，为空时使用 time.Now
	Now func() time.Time
}

// Run 返回 "Current Time = HH:MM:SS"
func (t *Tool) Run(ctx context.Context) string {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return "Current Time = " + now().Format("15:04:05")
}

// Invokable 构建可注册的 eino 工具
func (t *Tool) Invokable() (tool.InvokableTool, error) {
	return common.InferTool(Name, "Get the current time.",
		func(ctx context.Context, _ *struct{}) (string, error) {
			return t.Run(ctx), nil
		})
}
