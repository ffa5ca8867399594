package model

// StabilizeRequest representa o payload para estabilização de um ensemble
type StabilizeRequest struct {
	Results  []*WBSTree `json:"results" binding:"required,min=1"`
	Method   string     `json:"method,omitempty"`
	Validate bool       `json:"validate,omitempty"`
}

// ValidateRequest representa o payload para validação de uma única árvore
type ValidateRequest struct {
	WBS *WBSTree `json:"wbs" binding:"required"`
}

// ScheduleRequest representa o payload para cálculo de cronograma
type ScheduleRequest struct {
	WBS *WBSTree `json:"wbs" binding:"required"`
}

// AnalyzeRequest representa o payload de análise de um documento de especificação
type AnalyzeRequest struct {
	Document   string `json:"document" binding:"required"`
	Iterations int    `json:"iterations,omitempty"`
	Method     string `json:"method,omitempty"`
}

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
