package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSelection 模型认为没有匹配的工具
	ErrNoSelection = errors.New("没有选择工具")
	// ErrMalformedSelection 模型回复不是合法的选择对象
	ErrMalformedSelection = errors.New("工具选择格式错误")
)

// Selection 模型给出的工具调用
type Selection struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ParseSelection 解析任务模型的回复
// 回复必须是严格的 JSON 对象，代码块、截断或尾随文本一律视为格式错误
func ParseSelection(content string) (Selection, error) {
	var sel Selection

	content = strings.TrimSpace(content)
	// 模型偶尔把"空字符串"字面量原样返回
	if content == "" || content == `""` || content == "''" {
		return sel, ErrNoSelection
	}

	if err := json.Unmarshal([]byte(content), &sel); err != nil {
		return Selection{}, fmt.Errorf("%w: %w", ErrMalformedSelection, err)
	}
	sel.Name = strings.TrimSpace(sel.Name)
	if sel.Name == "" {
		return Selection{}, fmt.Errorf("%w: 缺少 name 字段", ErrMalformedSelection)
	}
	if sel.Parameters == nil {
		sel.Parameters = map[string]any{}
	}
	return sel, nil
}
