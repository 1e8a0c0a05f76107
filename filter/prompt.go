package filter

import (
	"strings"

	"github.com/weibaohui/fcpipe/tools"
)

// HistoryLimit 选择请求中携带的最近消息条数
const HistoryLimit = 4

// SelectionRules 追加在工具列表后的选择规则
const SelectionRules = `If a function tool doesn't match the query, return an empty string. Else, pick a function tool, fill in the parameters from the function tool's schema, and return it in the format { "name": "functionName", "parameters": { "key": "value" } }. Only pick a function if the user asks.  Only return the object. Do not return any other text.`

// BuildSelectionPrompt 构建工具选择的系统提示词
func BuildSelectionPrompt(specs []tools.ToolSpec) (string, error) {
	list, err := tools.FormatSpecs(specs)
	if err != nil {
		return "", err
	}
	return "Tools: " + list + "\n" + SelectionRules, nil
}

// BuildSelectionQuery 构建工具选择的用户消息
// 最近 limit 条消息按时间倒序渲染为 "role: content"，最后附上查询
func BuildSelectionQuery(messages []Message, query string, limit int) string {
	lines := make([]string, 0, limit)
	for i := len(messages) - 1; i >= 0 && len(lines) < limit; i-- {
		lines = append(lines, messages[i].Role+": "+messages[i].Content)
	}

	var b strings.Builder
	b.WriteString("History:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nQuery: ")
	b.WriteString(query)
	return b.String()
}

// RenderTemplate 用工具结果替换模板中的占位符
func RenderTemplate(template, placeholder, outcome string) string {
	return strings.ReplaceAll(template, placeholder, outcome)
}
