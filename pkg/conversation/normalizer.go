// Package conversation bounds client-supplied chat history before it reaches
// the model.
package conversation

import (
	"portfolio-agent-be/pkg/llm"
)

// MaxWindow is the number of most recent messages forwarded to the model.
const MaxWindow = 30

// Window is an ordered, oldest-first slice of at most MaxWindow messages.
type Window []llm.Message

// Normalize turns an arbitrary decoded JSON value into a Window. Entries that
// are not objects with a known string role and non-empty string content are
// dropped; a non-list input yields an empty window.
func Normalize(raw any) Window {
	var out Window

	switch items := raw.(type) {
	case []any:
		for _, item := range items {
			if m, ok := fromAny(item); ok {
				out = append(out, m)
			}
		}
	case []map[string]any:
		for _, item := range items {
			if m, ok := fromMap(item); ok {
				out = append(out, m)
			}
		}
	case []llm.Message:
		for _, m := range items {
			if valid(m.Role, m.Content) {
				out = append(out, m)
			}
		}
	default:
		return Window{}
	}

	return keepLast(out, MaxWindow)
}

func fromAny(item any) (llm.Message, bool) {
	switch v := item.(type) {
	case map[string]any:
		return fromMap(v)
	case llm.Message:
		return v, valid(v.Role, v.Content)
	default:
		return llm.Message{}, false
	}
}

func fromMap(m map[string]any) (llm.Message, bool) {
	role, ok := m["role"].(string)
	if !ok {
		return llm.Message{}, false
	}
	content, ok := m["content"].(string)
	if !ok {
		return llm.Message{}, false
	}
	if !valid(role, content) {
		return llm.Message{}, false
	}
	return llm.Message{Role: role, Content: content}, true
}

func valid(role, content string) bool {
	if content == "" {
		return false
	}
	switch role {
	case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		return true
	}
	return false
}

func keepLast(w Window, n int) Window {
	if w == nil {
		return Window{}
	}
	if len(w) <= n {
		return w
	}
	// Copy so the dropped prefix can be collected.
	return append(Window(nil), w[len(w)-n:]...)
}
