// Package exec 在宿主机上通过 shell 执行任意命令
//
// 命令不经过任何沙箱，是否调用完全取决于任务模型的输出，只应在受信环境中启用。
package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tools/common"
)

const (
	// Name 工具名称
	Name = "execute_generic_linux_command"
	// TimeoutMessage 命令超时时返回的固定文本
	TimeoutMessage = "Command timed out"

	DefaultTimeout   = 10 * time.Second
	DefaultMaxOutput = 10000

	// 超时杀进程后等待输出管道关闭的上限
	waitDelay = time.Second
)

// Input 工具参数
type Input struct {
	Command string `json:"command" jsonschema:"description=The linux shell command to execute."`
}

// Runner 带超时的 shell 命令执行器
type Runner struct {
	Timeout    time.Duration
	WorkingDir string
	MaxOutput  int
}

// Run 执行命令并返回 stdout 与 stderr 拼接后的文本
// 非零退出码不视为错误；超时返回 TimeoutMessage
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.WorkingDir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimeoutMessage, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", err
		}
	}

	maxOutput := r.MaxOutput
	if maxOutput == 0 {
		maxOutput = DefaultMaxOutput
	}
	return common.Truncate(stdout.String()+stderr.String(), maxOutput), nil
}

// Tool 通用 Linux 命令工具
type Tool struct {
	Runner *Runner
}

// Invokable 构建可注册的 eino 工具
func (t *Tool) Invokable() (tool.InvokableTool, error) {
	return common.InferTool(Name,
		"Execute a generic linux shell command and return its combined standard output and standard error.",
		func(ctx context.Context, in *Input) (string, error) {
			return t.runner().Run(ctx, in.Command)
		})
}

func (t *Tool) runner() *Runner {
	if t.Runner == nil {
		return &Runner{}
	}
	return t.Runner
}
