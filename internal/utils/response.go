package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page count for the given totals.
func NewPagination(page, limit, totalItems int) *Pagination {
	// safety defaults
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: totalItems,
		TotalPages: (totalItems + limit - 1) / limit,
	}
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, SuccessEnvelope(c, code, message, data))
}

// SuccessEnvelope builds the success envelope without writing it, for
// responses that add top-level fields next to it.
func SuccessEnvelope(c *gin.Context, code int, message string, data interface{}) Response {
	return Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta:    newMeta(c),
	}
}

// SuccessWithPagination writes a success response with pagination metadata.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int) {
	meta := newMeta(c)
	meta.Pagination = NewPagination(page, limit, totalItems)
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	ErrorWithInfo(c, code, message, &ErrorInfo{Code: errCode, Message: message})
}

// ValidationFailed writes a 422 response listing the offending fields.
func ValidationFailed(c *gin.Context, fields map[string]string) {
	ErrorWithInfo(c, 422, "The given data was invalid", &ErrorInfo{
		Code:    "VALIDATION_FAILED",
		Message: "The given data was invalid",
		Fields:  fields,
	})
}

// ErrorWithInfo writes an error response carrying a fully populated ErrorInfo.
func ErrorWithInfo(c *gin.Context, code int, message string, info *ErrorInfo) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error:   info,
		Meta:    newMeta(c),
	})
}

func newMeta(c *gin.Context) Meta {
	return Meta{
		RequestID: getRequestID(c),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
