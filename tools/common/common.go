// Package common 提供工具共享的参数解析与输出处理
package common

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

// TruncatedSuffix 输出被截断时追加的标记
const TruncatedSuffix = "... (truncated)"

// DecodeArgs 宽松地解析模型给出的 JSON 到结构体
// 依次尝试：原文、去除空字节、解包引号、补齐括号
func DecodeArgs(raw string, out any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), out); err == nil {
		return nil
	}

	candidate := strings.Trim(trimmed, "\u0000")
	if candidate != trimmed {
		if err := json.Unmarshal([]byte(candidate), out); err == nil {
			return nil
		}
	}
	if unquoted, ok := unquoteJSON(candidate); ok {
		if err := json.Unmarshal([]byte(unquoted), out); err == nil {
			return nil
		}
		candidate = unquoted
	}
	if balanced := balanceJSON(candidate); balanced != candidate {
		if err := json.Unmarshal([]byte(balanced), out); err == nil {
			return nil
		}
	}
	return json.Unmarshal([]byte(trimmed), out)
}

// unquoteJSON 解包被引号整体包裹的 JSON 文本
func unquoteJSON(input string) (string, bool) {
	if len(input) < 2 {
		return input, false
	}
	first, last := input[0], input[len(input)-1]
	if (first != '"' || last != '"') && (first != '\'' || last != '\'') {
		return input, false
	}
	unquoted, err := strconv.Unquote(input)
	if err != nil {
		return input, false
	}
	return unquoted, true
}

// balanceJSON 为缺失结尾括号的 JSON 补齐 ] 和 }
func balanceJSON(input string) string {
	var (
		inString bool
		escaped  bool
		braces   int
		brackets int
	)
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			braces++
		case ch == '}':
			braces--
		case ch == '[':
			brackets++
		case ch == ']':
			brackets--
		}
	}
	if braces <= 0 && brackets <= 0 {
		return input
	}

	var b strings.Builder
	b.WriteString(input)
	for ; brackets > 0; brackets-- {
		b.WriteByte(']')
	}
	for ; braces > 0; braces-- {
		b.WriteByte('}')
	}
	return b.String()
}

// Truncate 将 s 截断到 maxLen 个字符，超出部分以 TruncatedSuffix 标记
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + TruncatedSuffix
}

// InferTool 基于输入结构体的标签推导参数 schema 并构建可调用工具
// 参数统一走 DecodeArgs，输出原样作为字符串返回
func InferTool[T any](name, desc string, fn func(ctx context.Context, input *T) (string, error)) (tool.InvokableTool, error) {
	return utils.InferTool[*T, string](name, desc, fn,
		utils.WithUnmarshalArguments(func(ctx context.Context, arguments string) (any, error) {
			input := new(T)
			if err := DecodeArgs(arguments, input); err != nil {
				return nil, err
			}
			return input, nil
		}),
		utils.WithMarshalOutput(func(ctx context.Context, output any) (string, error) {
			s, _ := output.(string)
			return s, nil
		}),
	)
}
