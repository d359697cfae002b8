package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"realtime-scoring-backend/apperror"

	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest 客户端在响应前断开连接（nginx约定的499）
const statusClientClosedRequest = 499

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrPollNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrPollDeleted):
		return http.StatusGone, "deleted"
	case errors.Is(err, apperror.ErrConflictExhausted):
		return http.StatusServiceUnavailable, "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	body := ErrorResponse{Error: err.Error(), Code: code}

	switch status {
	case http.StatusInternalServerError:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		body.Error = "internal server error"
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", "1")
		body.Retryable = true
	case statusClientClosedRequest:
		slog.Debug("request canceled by client", "method", c.Request.Method, "path", c.FullPath())
	}

	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "validation"})
}
