package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the envelope
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeTerminalStatus   = "TERMINAL_STATUS"
	CodeNotSupported     = "NOT_SUPPORTED"
	CodeGatewayRejected  = "GATEWAY_REJECTED"
	CodeGatewayTransient = "GATEWAY_TRANSIENT"
	CodeGatewayError     = "GATEWAY_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// Response is the envelope of the admin, health and campaign endpoints.
// Donor donation endpoints answer with their own flat shape.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination for list endpoints
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ErrorBody builds an error envelope for AbortWithStatusJSON
func ErrorBody(code, message string) Response {
	return Response{Error: &ErrorData{Code: code, Message: message}}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMeta(c *gin.Context, data interface{}, meta Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: &meta})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody(code, message))
}

// Abort writes the error and stops the handler chain
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody(code, message))
}

// InternalError never exposes the cause; callers log it
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal error")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}
