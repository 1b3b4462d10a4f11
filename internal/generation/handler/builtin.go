package handler

import (
	"hearth/internal/generation/schema"
)

// AssistantReply is the output of the built-in assistant module.
type AssistantReply struct {
	Text        string   `json:"text" validate:"required" jsonschema:"description=The reply shown to the household member"`
	Suggestions []string `json:"suggestions,omitempty" validate:"max=5" jsonschema:"description=Up to five short follow-up prompts"`
}

// Builtin returns the tasks shipped with the server itself.
func Builtin() []TaskSpec {
	return []TaskSpec{{
		ModuleID:     "assistant",
		TaskType:     "chat.reply",
		SystemPrompt: "You are a concise assistant for a shared household. Answer the member's request directly.",
		Schema:       schema.MustOf[AssistantReply](),
	}}
}
