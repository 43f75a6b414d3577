package model

// CompletionRequest 一次模型补全：模板 ID + 变量 + 可选 JSON Schema
type CompletionRequest struct {
	Workflow string
	PromptID string
	Vars     map[string]any

	// SchemaName/Schema 非空时要求模型按 JSON Schema 输出
	SchemaName string
	Schema     map[string]any

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// CompletionResult 模型补全结果
type CompletionResult struct {
	Content string
	Meta    LLMUsageMeta
}
