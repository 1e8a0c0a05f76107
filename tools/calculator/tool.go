// Package calculator 提供受限的算术表达式计算工具
package calculator

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tools/common"
)

// Name 工具名称
const Name = "calculator"

// InvalidEquation 表达式无法计算时的固定返回
const InvalidEquation = "Invalid equation"

// Input 工具参数
type Input struct {
	Equation string `json:"equation" jsonschema:"description=The equation to calculate."`
}

// Tool 计算器工具，不执行任意代码
type Tool struct{}

// Run 返回 "<equation> = <result>"，表达式非法时返回 InvalidEquation
func (t *Tool) Run(ctx context.Context, in *Input) (string, error) {
	result, err := Eval(in.Equation)
	if err != nil {
		return InvalidEquation, nil
	}
	return in.Equation + " = " + result, nil
}

// Invokable 构建可注册的 eino 工具
func (t *Tool) Invokable() (tool.InvokableTool, error) {
	return common.InferTool(Name, "Calculate the result of an equation.", t.Run)
}
