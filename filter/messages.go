package filter

// GetLastUserMessage 返回最后一条 user 消息的文本
func GetLastUserMessage(messages []Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content, true
		}
	}
	return "", false
}

// AddOrUpdateSystemMessage 返回只含一条系统消息的新消息列表
// 已有系统消息时在第一条的位置替换内容并移除其余系统消息，否则插入到开头
// 不修改传入的切片
func AddOrUpdateSystemMessage(content string, messages []Message) []Message {
	system := NewMessage(RoleSystem, content)
	out := make([]Message, 0, len(messages)+1)

	replaced := false
	for _, m := range messages {
		if m.Role != RoleSystem {
			out = append(out, m)
			continue
		}
		if !replaced {
			// 保留原消息上的其他字段
			system.extra = cloneFields(m.extra)
			out = append(out, system)
			replaced = true
		}
	}
	if !replaced {
		out = append([]Message{system}, out...)
	}
	return out
}
