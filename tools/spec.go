package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// ToolSpec 工具描述，用于拼装工具选择提示词
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema 工具参数的 JSON Schema 子集
type ParameterSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]ParameterSpec `json:"properties"`
	Required   []string                 `json:"required,omitempty"`
}

// ParameterSpec 单个参数的描述
type ParameterSpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// HasParameter 判断参数是否已声明
func (s ToolSpec) HasParameter(name string) bool {
	_, ok := s.Parameters.Properties[name]
	return ok
}

// specFromInfo 由 eino ToolInfo 推导出 ToolSpec
func specFromInfo(info *schema.ToolInfo) (ToolSpec, error) {
	spec := ToolSpec{
		Name:        info.Name,
		Description: info.Desc,
		Parameters: ParameterSchema{
			Type:       "object",
			Properties: map[string]ParameterSpec{},
		},
	}
	if info.ParamsOneOf == nil {
		return spec, nil
	}

	js, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil {
		return spec, fmt.Errorf("转换工具 %s 的参数 schema 失败: %w", info.Name, err)
	}
	if js == nil {
		return spec, nil
	}
	data, err := json.Marshal(js)
	if err != nil {
		return spec, fmt.Errorf("序列化工具 %s 的参数 schema 失败: %w", info.Name, err)
	}

	var params ParameterSchema
	if err := json.Unmarshal(data, &params); err != nil {
		return spec, fmt.Errorf("解析工具 %s 的参数 schema 失败: %w", info.Name, err)
	}
	if params.Type != "" {
		spec.Parameters.Type = params.Type
	}
	for name, p := range params.Properties {
		spec.Parameters.Properties[name] = p
	}
	spec.Parameters.Required = params.Required
	return spec, nil
}

// infoOf 获取工具信息并校验名称
func infoOf(ctx context.Context, t interface {
	Info(ctx context.Context) (*schema.ToolInfo, error)
}) (*schema.ToolInfo, error) {
	info, err := t.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Name == "" {
		return nil, ErrEmptyName
	}
	return info, nil
}

// FormatSpecs 将工具描述序列化为缩进 JSON，嵌入提示词和命令行输出
func FormatSpecs(specs []ToolSpec) (string, error) {
	if specs == nil {
		specs = []ToolSpec{}
	}
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
