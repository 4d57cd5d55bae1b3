package models

type APIError struct {
	Code      string            `json:"code"`
	Label     string            `json:"label,omitempty"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	ClientID  string `json:"client_id"`
	ExpiresIn int    `json:"expires_in"`
}

type OptionsResponse struct {
	Tones     []string   `json:"tones"`
	Formats   []string   `json:"formats"`
	ChatModes []ChatMode `json:"chat_modes"`
}
