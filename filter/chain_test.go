package filter

import (
	"context"
	"testing"

	"github.com/weibaohui/fcpipe/config"
)

func newChainFilter(t *testing.T, id string, priority int, pipelines []string, m *fakeModel) *Filter {
	t.Helper()
	valves := config.DefaultValves()
	valves.Priority = priority
	valves.Pipelines = pipelines
	valves.Template = id + ": {{CONTEXT}}"
	f, err := New(Options{ID: id, Valves: valves, Registry: newTestRegistry(t), Model: m})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// TestChain_Order 测试按优先级排序
func TestChain_Order(t *testing.T) {
	m := &fakeModel{}
	c := NewChain(nil,
		newChainFilter(t, "c", 5, []string{"*"}, m),
		newChainFilter(t, "a", 1, []string{"*"}, m),
		newChainFilter(t, "b", 5, []string{"*"}, m),
		newChainFilter(t, "first", -1, []string{"*"}, m),
	)

	var ids []string
	for _, f := range c.Filters() {
		ids = append(ids, f.ID())
	}
	want := []string{"first", "a", "c", "b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("顺序 = %v, 期望 %v", ids, want)
		}
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d", c.Len())
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("Get(b) 应找到过滤器")
	}
	if _, ok := c.Get("z"); ok {
		t.Error("Get(z) 不应找到过滤器")
	}
}

// TestChain_Inlet 测试链式执行
func TestChain_Inlet(t *testing.T) {
	ctx := context.Background()
	m := &fakeModel{content: `{"name":"get_current_time","parameters":{}}`}
	c := NewChain(nil,
		newChainFilter(t, "late", 10, []string{"*"}, m),
		newChainFilter(t, "early", 0, []string{"*"}, m),
		newChainFilter(t, "qwen_only", 0, []string{"qwen"}, m),
	)

	body := &Body{Model: "llama3", Messages: []Message{NewMessage(RoleUser, "time?")}}
	out := c.Inlet(ctx, body, nil)

	if m.calls != 2 {
		t.Errorf("模型调用次数 = %d, 期望 2", m.calls)
	}
	if countSystem(out.Messages) != 1 {
		t.Fatalf("消息 = %+v", out.Messages)
	}
	// 后执行的过滤器覆盖系统消息
	if got := out.Messages[0].Content; got != "late: Current Time = 14:30:05" {
		t.Errorf("系统消息 = %q", got)
	}

	if len(c.ForModel("qwen")) != 3 || len(c.ForModel("llama3")) != 2 {
		t.Error("ForModel 结果不正确")
	}

	if c.Outlet(ctx, body, nil) != body {
		t.Error("Outlet 应原样返回")
	}
	if c.Inlet(ctx, nil, nil) != nil {
		t.Error("nil 请求应返回 nil")
	}
}

// TestChain_Lifecycle 测试生命周期
func TestChain_Lifecycle(t *testing.T) {
	c := NewChain(nil, newChainFilter(t, "a", 0, []string{"*"}, &fakeModel{}))
	c.OnStartup(context.Background())
	c.OnShutdown(context.Background())

	empty := NewChain(nil)
	if out := empty.Inlet(context.Background(), &Body{}, nil); out == nil {
		t.Error("空链应原样返回")
	}
}
