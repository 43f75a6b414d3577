package model

import "time"

// LLMUsageMeta 单次模型调用的用量元数据
type LLMUsageMeta struct {
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Temperature      float64   `json:"temperature"`
	SchemaMode       string    `json:"schema_mode"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// 结构化输出模式
const (
	SchemaModeJSONSchema = "json_schema"
	SchemaModePromptOnly = "prompt_only"
	SchemaModeNone       = "none"
)
