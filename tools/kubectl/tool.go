// Package kubectl 在集群内执行 kubectl 命令
package kubectl

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tools/common"
	"github.com/weibaohui/fcpipe/tools/exec"
)

// Name 工具名称
const Name = "execute_kubectl_in_kubernetes_cluster"

// Input 工具参数
type Input struct {
	KubectlCommand string `json:"kubectl_command" jsonschema:"description=The kubectl command to execute. For example: get pods -n default"`
}

// Tool kubectl 工具，复用通用命令执行器
type Tool struct {
	Runner *exec.Runner
}

// BuildCommand 缺少 kubectl 前缀时补上
func BuildCommand(command string) string {
	command = strings.TrimSpace(command)
	if command == "kubectl" || strings.HasPrefix(command, "kubectl ") {
		return command
	}
	return "kubectl " + command
}

// Run 执行 kubectl 命令
func (t *Tool) Run(ctx context.Context, in *Input) (string, error) {
	runner := t.Runner
	if runner == nil {
		runner = &exec.Runner{}
	}
	return runner.Run(ctx, BuildCommand(in.KubectlCommand))
}

// Invokable 构建可注册的 eino 工具
func (t *Tool) Invokable() (tool.InvokableTool, error) {
	return common.InferTool(Name,
		"Execute a kubectl command in the kubernetes cluster and return its output.",
		t.Run)
}
