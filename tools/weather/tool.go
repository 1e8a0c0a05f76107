// Package weather 通过 wttr.in 风格的文本接口查询天气
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/weibaohui/fcpipe/tools/common"
)

const (
	// Name 工具名称
	Name = "get_current_weather"
	// DefaultBaseURL 默认天气服务地址
	DefaultBaseURL = "http://wttr.in"

	maxBodyBytes = 64 << 10
)

// Input 工具参数
type Input struct {
	Location string `json:"location" jsonschema:"description=The location to get the weather for."`
	Unit     string `json:"unit,omitempty" jsonschema:"description=The unit to get the weather in. Default is metric.,enum=metric,enum=fahrenheit"`
}

// Tool 天气查询工具
type Tool struct {
	BaseURL string
	Client  *http.Client
}

// New 创建天气工具
func New(baseURL string, timeout time.Duration) *Tool {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tool{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Run 查询天气，非 200 响应返回说明文字，网络错误返回 error
func (t *Tool) Run(ctx context.Context, in *Input) (string, error) {
	unitCode := "m"
	if in.Unit == "fahrenheit" {
		unitCode = "u"
	}

	endpoint := fmt.Sprintf("%s/%s?FT%s", t.BaseURL, url.PathEscape(in.Location), unitCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求天气服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Could not retrieve weather for %s", in.Location), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("读取天气响应失败: %w", err)
	}
	return string(body), nil
}

// Invokable 构建可注册的 eino 工具
func (t *Tool) Invokable() (tool.InvokableTool, error) {
	return common.InferTool(Name,
		"Get the current weather for a location. If the location is not found, return an empty string.",
		t.Run)
}
