package dto

// PersonaRequest 人格生成请求
type PersonaRequest struct {
	Planet     string `json:"planet" binding:"required"`
	Sign       string `json:"sign" binding:"required"`
	House      int    `json:"house,omitempty"`
	Retrograde bool   `json:"retrograde"`
}

// PersonaResponse 人格生成响应
type PersonaResponse struct {
	Planet   string `json:"planet"`
	Sign     string `json:"sign"`
	Persona  string `json:"persona"`
	Prompt   string `json:"prompt"`
	Strategy string `json:"strategy"`
}
