package dto

// ErrorResponse is the envelope for API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrorResponse lists every validation problem with a request.
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}
