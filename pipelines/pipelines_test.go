package pipelines

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/weibaohui/fcpipe/config"
	"github.com/weibaohui/fcpipe/filter"
)

type stubModel struct {
	content string
}

func (m *stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func stubFactory(content string) ModelFactory {
	return func(ctx context.Context, cfg config.ProviderConfig, valves config.Valves) (model.BaseChatModel, error) {
		return &stubModel{content: content}, nil
	}
}

// TestBuilder_Registry 测试两类工具集
func TestBuilder_Registry(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(nil, nil)

	tests := []struct {
		toolset string
		want    []string
	}{
		{config.ToolsetTools, []string{"get_current_time", "get_current_weather", "calculator"}},
		{config.ToolsetKubectl, []string{"execute_kubectl_in_kubernetes_cluster", "execute_generic_linux_command"}},
	}
	for _, tt := range tests {
		t.Run(tt.toolset, func(t *testing.T) {
			r, err := b.Registry(ctx, tt.toolset)
			if err != nil {
				t.Fatalf("Registry 返回错误: %v", err)
			}
			if got := strings.Join(r.Names(), ","); got != strings.Join(tt.want, ",") {
				t.Errorf("Names() = %s, 期望 %v", got, tt.want)
			}
		})
	}

	t.Run("天气参数", func(t *testing.T) {
		r, _ := b.Registry(ctx, config.ToolsetTools)
		specs := r.Describe()
		w := specs[1]
		if !w.HasParameter("location") || !w.HasParameter("unit") {
			t.Errorf("天气工具参数 = %+v", w.Parameters)
		}
		if len(specs[0].Parameters.Properties) != 0 {
			t.Errorf("时间工具不应有参数: %+v", specs[0].Parameters)
		}
	})

	if _, err := b.Registry(ctx, "browser"); err == nil {
		t.Error("未知工具集应返回错误")
	}
}

// TestBuilder_Build 测试组装启用的过滤器
func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Filters[1].Enabled = true
	cfg.Filters[1].Valves.Priority = -1

	chain, err := NewBuilder(cfg, nil).
		WithModelFactory(stubFactory(`{"name":"calculator","parameters":{"equation":"7/2"}}`)).
		Build(ctx)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	filters := chain.Filters()
	if len(filters) != 2 || filters[0].ID() != "kubectl_pipeline" {
		t.Fatalf("过滤器 = %v", filters)
	}

	tf, ok := chain.Get("my_tools_pipeline")
	if !ok {
		t.Fatal("缺少 my_tools_pipeline")
	}
	body := &filter.Body{Messages: []filter.Message{filter.NewMessage(filter.RoleUser, "7/2?")}}
	out := tf.Inlet(ctx, body, nil)
	if len(out.Messages) != 2 || !strings.Contains(out.Messages[0].Content, "7/2 = 3.5") {
		t.Errorf("消息 = %+v", out.Messages)
	}
}

// TestBuilder_Build_DefaultsOnly 测试默认配置只启用一个过滤器
func TestBuilder_Build_DefaultsOnly(t *testing.T) {
	chain, err := NewBuilder(config.DefaultConfig(), nil).WithModelFactory(stubFactory("")).Build(context.Background())
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if chain.Len() != 1 {
		t.Errorf("Len() = %d, 期望 1", chain.Len())
	}
}

// TestBuild_ProviderError 测试任务模型创建失败
func TestBuild_ProviderError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.Kind = "bedrock"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Error("未知 provider 应返回错误")
	}
}

// TestBuild_Ollama 测试默认 provider 可以创建
func TestBuild_Ollama(t *testing.T) {
	cfg := config.DefaultConfig()
	chain, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	if _, ok := chain.Get("my_tools_pipeline"); !ok {
		t.Error("缺少 my_tools_pipeline")
	}
}
