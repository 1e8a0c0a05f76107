package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// mockTool 用于测试的模拟工具
type mockTool struct {
	name    string
	params  map[string]*schema.ParameterInfo
	result  string
	err     error
	panics  bool
	gotArgs string
}

func (m *mockTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	info := &schema.ToolInfo{Name: m.name, Desc: "测试工具 " + m.name}
	if m.params != nil {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(m.params)
	}
	return info, nil
}

func (m *mockTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	m.gotArgs = argumentsInJSON
	if m.panics {
		panic("boom")
	}
	return m.result, m.err
}

// TestRegistry_Register 测试注册工具
func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("注册普通工具", func(t *testing.T) {
		r := NewRegistry(nil)
		if err := r.Register(ctx, &mockTool{name: "a"}); err != nil {
			t.Fatalf("Register 返回错误: %v", err)
		}
		if r.Len() != 1 {
			t.Errorf("Len() = %d, 期望 1", r.Len())
		}
	})

	t.Run("重复注册", func(t *testing.T) {
		r := NewRegistry(nil)
		_ = r.Register(ctx, &mockTool{name: "a"})
		err := r.Register(ctx, &mockTool{name: "a"})
		if !errors.Is(err, ErrDuplicateTool) {
			t.Errorf("err = %v, 期望 ErrDuplicateTool", err)
		}
	})

	t.Run("空名称工具", func(t *testing.T) {
		r := NewRegistry(nil)
		err := r.Register(ctx, &mockTool{name: ""})
		if !errors.Is(err, ErrEmptyName) {
			t.Errorf("err = %v, 期望 ErrEmptyName", err)
		}
		if r.Len() != 0 {
			t.Error("空名称工具不应该被注册")
		}
	})
}

// TestRegistry_Describe 测试工具描述保持注册顺序
func TestRegistry_Describe(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		_ = r.Register(ctx, &mockTool{name: name})
	}
	_ = r.Register(ctx, &mockTool{
		name: "weather",
		params: map[string]*schema.ParameterInfo{
			"location": {Type: schema.String, Desc: "城市", Required: true},
			"unit":     {Type: schema.String, Enum: []string{"metric", "fahrenheit"}},
		},
	})

	specs := r.Describe()
	if len(specs) != 4 {
		t.Fatalf("Describe 返回 %d 个, 期望 4", len(specs))
	}
	for i, name := range names {
		if specs[i].Name != name {
			t.Errorf("specs[%d].Name = %q, 期望 %q", i, specs[i].Name, name)
		}
	}

	weather := specs[3]
	if weather.Parameters.Type != "object" {
		t.Errorf("Parameters.Type = %q, 期望 object", weather.Parameters.Type)
	}
	loc, ok := weather.Parameters.Properties["location"]
	if !ok || loc.Type != "string" || loc.Description != "城市" {
		t.Errorf("location 参数 = %+v", loc)
	}
	if len(weather.Parameters.Properties["unit"].Enum) != 2 {
		t.Errorf("unit 枚举 = %v", weather.Parameters.Properties["unit"].Enum)
	}
	if len(weather.Parameters.Required) != 1 || weather.Parameters.Required[0] != "location" {
		t.Errorf("Required = %v, 期望 [location]", weather.Parameters.Required)
	}
	if !weather.HasParameter("unit") || weather.HasParameter("city") {
		t.Error("HasParameter 结果不正确")
	}

	// 无参数工具也要有 properties
	if specs[0].Parameters.Properties == nil {
		t.Error("无参数工具 Properties 不应为 nil")
	}

	// 多次调用结果一致
	again := r.Describe()
	if len(again) != len(specs) || again[0].Name != specs[0].Name {
		t.Error("Describe 应该是幂等的")
	}
}

// TestRegistry_Resolve 测试查找工具
func TestRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	_ = r.Register(ctx, &mockTool{name: "calc"})

	if _, err := r.Resolve("calc"); err != nil {
		t.Errorf("Resolve(calc) 返回错误: %v", err)
	}
	_, err := r.Resolve("nonexistent")
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("err = %v, 期望 ErrUnknownTool", err)
	}
}

// TestRegistry_Invoke 测试调用工具
func TestRegistry_Invoke(t *testing.T) {
	ctx := context.Background()

	t.Run("正常调用并传递参数", func(t *testing.T) {
		r := NewRegistry(nil)
		m := &mockTool{name: "ok", result: "结果"}
		_ = r.Register(ctx, m)

		got := r.Invoke(ctx, "ok", map[string]any{"equation": "1+1"})
		if got != "结果" {
			t.Errorf("Invoke = %q, 期望 结果", got)
		}
		if !strings.Contains(m.gotArgs, `"equation":"1+1"`) {
			t.Errorf("参数 = %s", m.gotArgs)
		}
	})

	t.Run("nil 参数序列化为空对象", func(t *testing.T) {
		r := NewRegistry(nil)
		m := &mockTool{name: "ok", result: "x"}
		_ = r.Register(ctx, m)

		r.Invoke(ctx, "ok", nil)
		if m.gotArgs != "{}" {
			t.Errorf("参数 = %q, 期望 {}", m.gotArgs)
		}
	})

	t.Run("工具返回错误时结果为空", func(t *testing.T) {
		r := NewRegistry(nil)
		_ = r.Register(ctx, &mockTool{name: "bad", result: "partial", err: errors.New("失败")})
		if got := r.Invoke(ctx, "bad", nil); got != "" {
			t.Errorf("Invoke = %q, 期望空字符串", got)
		}
	})

	t.Run("工具 panic 时结果为空", func(t *testing.T) {
		r := NewRegistry(nil)
		_ = r.Register(ctx, &mockTool{name: "panic", panics: true})
		if got := r.Invoke(ctx, "panic", nil); got != "" {
			t.Errorf("Invoke = %q, 期望空字符串", got)
		}
	})

	t.Run("未注册的工具", func(t *testing.T) {
		r := NewRegistry(nil)
		if got := r.Invoke(ctx, "missing", nil); got != "" {
			t.Errorf("Invoke = %q, 期望空字符串", got)
		}
	})
}

// TestFormatSpecs 测试工具描述序列化
func TestFormatSpecs(t *testing.T) {
	text, err := FormatSpecs(nil)
	if err != nil || text != "[]" {
		t.Errorf("FormatSpecs(nil) = %q, %v", text, err)
	}

	text, err = FormatSpecs([]ToolSpec{{Name: "get_current_time", Description: "Get the current time.",
		Parameters: ParameterSchema{Type: "object", Properties: map[string]ParameterSpec{}}}})
	if err != nil {
		t.Fatalf("FormatSpecs 返回错误: %v", err)
	}
	for _, want := range []string{`"name": "get_current_time"`, `"description": "Get the current time."`, `"properties": {}`} {
		if !strings.Contains(text, want) {
			t.Errorf("输出缺少 %s:\n%s", want, text)
		}
	}
}

// TestRegistry_Concurrency 测试并发读取
func TestRegistry_Concurrency(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	_ = r.Register(ctx, &mockTool{name: "shared", result: "ok"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Describe()
			r.Names()
			_, _ = r.Resolve("shared")
		}()
	}
	wg.Wait()
}
