package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/weibaohui/fcpipe/config"
)

// TestFindByName 测试查找提供商
func TestFindByName(t *testing.T) {
	tests := []struct {
		name  string
		label string
	}{
		{config.ProviderOllama, "Ollama"},
		{config.ProviderOpenAI, "OpenAI Compatible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := FindByName(tt.name)
			if spec == nil {
				t.Fatalf("FindByName(%q) = nil", tt.name)
			}
			if spec.Label() != tt.label {
				t.Errorf("Label() = %q, 期望 %q", spec.Label(), tt.label)
			}
		})
	}

	if FindByName("bedrock") != nil {
		t.Error("未知提供商应返回 nil")
	}
}

// TestNewTaskModel_Errors 测试创建模型的错误分支
func TestNewTaskModel_Errors(t *testing.T) {
	ctx := context.Background()
	valves := config.DefaultValves()

	_, err := NewTaskModel(ctx, config.ProviderConfig{Kind: "bedrock"}, valves)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, 期望 ErrUnknownKind", err)
	}

	valves.TaskModel = ""
	_, err = NewTaskModel(ctx, config.ProviderConfig{Kind: config.ProviderOllama}, valves)
	if !errors.Is(err, ErrEmptyModel) {
		t.Errorf("err = %v, 期望 ErrEmptyModel", err)
	}
}

// TestNewTaskModel_Ollama 测试 Ollama 原生接口
func TestNewTaskModel_Ollama(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   *bool  `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3:instruct","created_at":"2024-05-01T10:00:00Z","message":{"role":"assistant","content":"{\"name\":\"get_current_time\",\"parameters\":{}}"},"done":true}`+"\n")
	}))
	defer server.Close()

	valves := config.DefaultValves()
	valves.OllamaAPIBaseURL = server.URL + "/"

	m, err := NewTaskModel(context.Background(), config.ProviderConfig{Kind: config.ProviderOllama, Timeout: 5}, valves)
	if err != nil {
		t.Fatalf("NewTaskModel 返回错误: %v", err)
	}

	resp, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("Tools: []"),
		schema.UserMessage("What time is it?"),
	})
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	if !strings.Contains(resp.Content, "get_current_time") {
		t.Errorf("Content = %q", resp.Content)
	}

	if got.Model != "llama3:instruct" {
		t.Errorf("请求模型 = %q", got.Model)
	}
	if got.Stream == nil || *got.Stream {
		t.Error("请求应为非流式")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("请求消息 = %+v", got.Messages)
	}
}

// TestNewTaskModel_OpenAI 测试 OpenAI 兼容接口
func TestNewTaskModel_OpenAI(t *testing.T) {
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1714557600,"model":"llama3:instruct",
"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}],
"usage":{"prompt_tokens":10,"completion_tokens":0,"total_tokens":10}}`)
	}))
	defer server.Close()

	valves := config.DefaultValves()
	valves.OllamaAPIBaseURL = server.URL

	m, err := NewTaskModel(context.Background(), config.ProviderConfig{Kind: config.ProviderOpenAI}, valves)
	if err != nil {
		t.Fatalf("NewTaskModel 返回错误: %v", err)
	}
	resp, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("Content = %q, 期望空字符串", resp.Content)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("请求路径 = %q", path)
	}
	if auth != "Bearer "+openaiPlaceholderKey {
		t.Errorf("Authorization = %q", auth)
	}
}
