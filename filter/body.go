// Package filter 实现函数调用过滤器：在请求到达主模型前选择并执行工具，
// 把工具结果作为系统消息注入对话
package filter

import (
	"bytes"
	"encoding/json"
	"strings"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话中的一条消息
// content 可以是字符串或内容片段数组，未识别的字段原样保留
type Message struct {
	Role    string
	Content string

	// parts 原始的内容片段数组，Content 为其中文本片段的拼接
	parts json.RawMessage
	extra map[string]json.RawMessage
}

// NewMessage 创建纯文本消息
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// HasParts 判断内容是否为片段数组
func (m Message) HasParts() bool {
	return m.parts != nil
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON 解析消息
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = Message{}

	if raw, ok := fields["role"]; ok {
		if err := json.Unmarshal(raw, &m.Role); err != nil {
			return err
		}
		delete(fields, "role")
	}
	if raw, ok := fields["content"]; ok {
		raw = bytes.TrimSpace(raw)
		switch {
		case len(raw) > 0 && raw[0] == '[':
			var parts []contentPart
			if err := json.Unmarshal(raw, &parts); err != nil {
				return err
			}
			texts := make([]string, 0, len(parts))
			for _, p := range parts {
				if p.Type == "text" || (p.Type == "" && p.Text != "") {
					texts = append(texts, p.Text)
				}
			}
			m.Content = strings.Join(texts, "\n")
			m.parts = append(json.RawMessage(nil), raw...)
		case string(raw) == "null":
		default:
			if err := json.Unmarshal(raw, &m.Content); err != nil {
				return err
			}
		}
		delete(fields, "content")
	}
	if len(fields) > 0 {
		m.extra = fields
	}
	return nil
}

// MarshalJSON 序列化消息
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+2)
	for k, v := range m.extra {
		out[k] = v
	}
	out["role"] = m.Role
	if m.parts != nil {
		out["content"] = m.parts
	} else {
		out["content"] = m.Content
	}
	return json.Marshal(out)
}

// Body 过滤器处理的请求体
// 除 model、messages、title 外的字段原样透传
type Body struct {
	Model    string
	Messages []Message
	// Title 为 true 表示这是生成会话标题的请求
	Title bool

	hasModel bool
	hasTitle bool
	// titleRaw 原始 title 值，Title 未被修改时原样输出
	titleRaw json.RawMessage
	extra    map[string]json.RawMessage
}

// UnmarshalJSON 解析请求体
func (b *Body) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = Body{}

	if raw, ok := fields["model"]; ok {
		if err := json.Unmarshal(raw, &b.Model); err != nil {
			return err
		}
		b.hasModel = true
		delete(fields, "model")
	}
	if raw, ok := fields["messages"]; ok {
		if err := json.Unmarshal(raw, &b.Messages); err != nil {
			return err
		}
		delete(fields, "messages")
	}
	if raw, ok := fields["title"]; ok {
		// 非布尔值按真值判断：非零数字、非空字符串、非空数组或对象为 true
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		b.Title = truthy(v)
		b.hasTitle = true
		b.titleRaw = raw
		delete(fields, "title")
	}
	if len(fields) > 0 {
		b.extra = fields
	}
	return nil
}

// MarshalJSON 序列化请求体
func (b Body) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.extra)+3)
	for k, v := range b.extra {
		out[k] = v
	}
	if b.hasModel || b.Model != "" {
		out["model"] = b.Model
	}
	messages := b.Messages
	if messages == nil {
		messages = []Message{}
	}
	out["messages"] = messages
	switch {
	case b.titleRaw != nil && truthy(rawValue(b.titleRaw)) == b.Title:
		out["title"] = b.titleRaw
	case b.hasTitle || b.Title:
		out["title"] = b.Title
	}
	return json.Marshal(out)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return false
}

func rawValue(raw json.RawMessage) any {
	var v any
	_ = json.Unmarshal(raw, &v)
	return v
}

// Extra 返回未识别字段的原始 JSON
func (b *Body) Extra(key string) (json.RawMessage, bool) {
	raw, ok := b.extra[key]
	return raw, ok
}

// Clone 深拷贝请求体，修改副本不影响原请求
func (b *Body) Clone() *Body {
	if b == nil {
		return nil
	}
	c := *b
	if b.Messages != nil {
		c.Messages = make([]Message, len(b.Messages))
		for i, m := range b.Messages {
			c.Messages[i] = m.clone()
		}
	}
	if b.titleRaw != nil {
		c.titleRaw = append(json.RawMessage(nil), b.titleRaw...)
	}
	c.extra = cloneFields(b.extra)
	return &c
}

func (m Message) clone() Message {
	c := m
	if m.parts != nil {
		c.parts = append(json.RawMessage(nil), m.parts...)
	}
	c.extra = cloneFields(m.extra)
	return c
}

func cloneFields(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
