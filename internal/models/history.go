package models

type HistoryItem struct {
	ID        string                 `json:"id"`
	Params    PromptGenerationParams `json:"params"`
	Result    PromptResult           `json:"result"`
	Timestamp int64                  `json:"timestamp"` // Unix milliseconds
}

type HistoryListResponse struct {
	Items []HistoryItem `json:"items"`
	Total int           `json:"total"`
}
