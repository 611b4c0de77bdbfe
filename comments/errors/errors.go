package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Comment service specific errors
var (
	ErrCommentNotFound          = errors.New("comment not found")
	ErrParentNotFound           = errors.New("parent comment not found")
	ErrParentEventMismatch      = errors.New("parent comment belongs to another event")
	ErrCommentOwnershipRequired = errors.New("comment ownership required")
	ErrMissingUserContext       = errors.New("missing user context")
	ErrValidationFailed         = errors.New("validation failed")
	ErrInvalidCursor            = errors.New("invalid pagination cursor")

	ErrDatabaseOperation = errors.New("database operation failed")
)

// CommentError represents a comment service error with additional context
type CommentError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommentError) Unwrap() error {
	return e.Cause
}

// NewCommentError creates a new CommentError
func NewCommentError(code, message string, cause error) *CommentError {
	return &CommentError{Code: code, Message: message, Cause: cause}
}

// NewValidationError wraps ErrValidationFailed with a field message
func NewValidationError(message string) *CommentError {
	return NewCommentError(CodeValidationFailed, message, ErrValidationFailed)
}

// Error codes
const (
	CodeCommentNotFound    = "COMMENT_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeInvalidCursor      = "INVALID_CURSOR"
	CodeDatabaseOperation  = "DATABASE_OPERATION_FAILED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// StatusFor maps an error to its HTTP status and response body
func StatusFor(err error) (int, ErrorResponse) {
	var ce *CommentError
	switch {
	case errors.Is(err, ErrValidationFailed):
		msg := "Validation failed"
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		return http.StatusBadRequest, ErrorResponse{Code: CodeValidationFailed, Message: msg}
	case errors.Is(err, ErrInvalidCursor):
		return http.StatusBadRequest, ErrorResponse{Code: CodeInvalidCursor, Message: "Invalid pagination cursor", Details: err.Error()}
	case errors.Is(err, ErrCommentNotFound):
		return http.StatusNotFound, ErrorResponse{Code: CodeCommentNotFound, Message: "Comment not found", Details: err.Error()}
	case errors.Is(err, ErrParentNotFound):
		return http.StatusNotFound, ErrorResponse{Code: CodeCommentNotFound, Message: "Parent comment not found", Details: err.Error()}
	case errors.Is(err, ErrParentEventMismatch):
		return http.StatusBadRequest, ErrorResponse{Code: CodeValidationFailed, Message: "Parent comment belongs to another event"}
	case errors.Is(err, ErrCommentOwnershipRequired):
		return http.StatusForbidden, ErrorResponse{Code: CodePermissionDenied, Message: "Comment ownership required", Details: err.Error()}
	case errors.Is(err, ErrMissingUserContext):
		return http.StatusUnauthorized, ErrorResponse{Code: CodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, ErrDatabaseOperation):
		return http.StatusServiceUnavailable, ErrorResponse{Code: CodeDatabaseOperation, Message: "Database operation failed", Details: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: CodeInternalError, Message: "An unexpected error occurred", Details: err.Error()}
	}
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	status, body := StatusFor(err)
	return c.Status(status).JSON(body)
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string, details ...string) error {
	response := ErrorResponse{
		Code:    CodeValidationFailed,
		Message: message,
	}
	if len(details) > 0 {
		response.Details = details[0]
	}
	return c.Status(http.StatusBadRequest).JSON(response)
}

// HandleUserContextError returns an error for invalid user context
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    CodeUnauthorized,
		Message: message,
	})
}
