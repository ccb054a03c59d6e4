package response

import (
	"net/http"

	"algojudge/pkg/errors"
	"algojudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope every HTTP endpoint answers with.
type Response struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success sends a successful response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.Success,
		Message: "Success",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Accepted sends a 202 for work that continues asynchronously.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Code:    errors.Success,
		Message: "Accepted",
		Data:    data,
		TraceID: getTraceID(c),
	})
}

// Error sends an error response, taking code and message from err.
func Error(c *gin.Context, err error) {
	appErr := errors.GetError(err)
	status := appErr.Code.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", int(appErr.Code)),
		zap.String("message", appErr.Error()),
		zap.Any("details", appErr.Details),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request error", append(fields, zap.String("stack", appErr.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	c.JSON(status, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
		TraceID: getTraceID(c),
	})
}

// ErrorWithCode sends an error response for code, defaulting the message.
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}
	Error(c, errors.New(code).WithMessage(message))
}

// BadRequest sends a 400.
func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, errors.InvalidParams, message)
}

// NotFound sends a 404.
func NotFound(c *gin.Context, message string) {
	ErrorWithCode(c, errors.NotFound, message)
}

// Paginated wraps a page of items.
type Paginated struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// SuccessWithPagination sends one page of a listing.
func SuccessWithPagination(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize != 0 {
			totalPages++
		}
	}
	Success(c, Paginated{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func getTraceID(c *gin.Context) string {
	if traceID, ok := c.Get("trace_id"); ok {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
