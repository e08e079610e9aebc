package response

import (
	"net/http"
	"time"

	"sysconfd/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response represents standard API response
type Response struct {
	Code      int        `json:"code"`                 // HTTP status code
	Message   string     `json:"message"`              // Response message
	Data      any        `json:"data,omitempty"`       // Response data
	Error     string     `json:"error,omitempty"`      // Error message if any
	ErrorKind types.Kind `json:"error_kind,omitempty"` // Failure class if any
	RequestID string     `json:"request_id"`           // Request ID for tracking
	Timestamp time.Time  `json:"timestamp"`            // Response timestamp
}

// Handler provides methods for standard API responses
type Handler struct {
	ctx    *gin.Context
	logger *zap.Logger
}

// New creates new response handler
func New(c *gin.Context, logger *zap.Logger) *Handler {
	return &Handler{
		ctx:    c,
		logger: logger,
	}
}

// Success sends success response
func (h *Handler) Success(data any) {
	h.ctx.JSON(http.StatusOK, Response{
		Code:      http.StatusOK,
		Message:   "success",
		Data:      data,
		RequestID: h.ctx.GetString("request_id"),
		Timestamp: time.Now(),
	})
}

// Accepted sends accepted response
func (h *Handler) Accepted(data any) {
	h.ctx.JSON(http.StatusAccepted, Response{
		Code:      http.StatusAccepted,
		Message:   "accepted",
		Data:      data,
		RequestID: h.ctx.GetString("request_id"),
		Timestamp: time.Now(),
	})
}

// Error sends an error response
func (h *Handler) Error(status int, err error) {
	h.ctx.JSON(status, Response{
		Code:      status,
		Message:   "error",
		Error:     err.Error(),
		RequestID: h.ctx.GetString("request_id"),
		Timestamp: time.Now(),
	})
}

// Fail sends an error response whose status follows the error kind. data,
// when given, is returned alongside the error.
func (h *Handler) Fail(err error, data any) {
	kind := types.KindOf(err)
	status := StatusFor(kind)
	h.ctx.JSON(status, Response{
		Code:      status,
		Message:   "error",
		Data:      data,
		Error:     err.Error(),
		ErrorKind: kind,
		RequestID: h.ctx.GetString("request_id"),
		Timestamp: time.Now(),
	})
}

// BadRequest sends bad request error response
func (h *Handler) BadRequest(err error) {
	h.Fail(types.NewError(types.KindParseError, "decode request", err), nil)
}

// InternalError sends an internal server error response
func (h *Handler) InternalError(err error) {
	h.Error(http.StatusInternalServerError, err)
}

// StatusFor maps an error kind onto an HTTP status
func StatusFor(kind types.Kind) int {
	switch kind {
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindInvalidZone, types.KindParseError, types.KindInvalidValue:
		return http.StatusBadRequest
	case types.KindPartialApply, types.KindAborted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
