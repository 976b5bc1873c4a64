package handlers

const (
	// maxBodyBytes bounds JSON request bodies
	maxBodyBytes = 4 << 10

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
