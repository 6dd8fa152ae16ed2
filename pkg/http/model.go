package http

// APIResponse is the envelope every endpoint writes. Status mirrors the logical result;
// the transport status is always 200.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope written by AppErrorResponse.
type ErrorResponse struct {
	Status  int        `json:"status" example:"503"`
	Message string     `json:"message" example:"Service Unavailable"`
	Data    []AppError `json:"data,omitempty"`
}

// ValidationErrorResponse is the envelope written for rejected query or body parameters.
type ValidationErrorResponse struct {
	Status  int               `json:"status" example:"400"`
	Message string            `json:"message" example:"Bad Request"`
	Data    []ValidationError `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_ONEOF"`
	Field   string                 `json:"field,omitempty" example:"sort"`
	Message string                 `json:"message,omitempty" example:"sort must be one of: breakout, volume, oi_z, funding"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
