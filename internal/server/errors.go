package server

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/script-hub/internal/transform"
)

// errorPayload 固定字段顺序：statusCode、code、error、message。
type errorPayload struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// newErrorHandler 是错误转换为 HTTP 响应的唯一出口。
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		payload := buildErrorPayload(err)

		if payload.StatusCode >= fiber.StatusInternalServerError {
			logger.WithError(err).WithFields(logrus.Fields{
				"action":     "request",
				"path":       c.Path(),
				"request_id": RequestID(c),
				"status":     payload.StatusCode,
				"code":       payload.Code,
			}).Error("request_failed")
		}

		c.Response().Header.Del(fiber.HeaderLastModified)
		c.Response().Header.Del(fiber.HeaderETag)
		c.Response().Header.Del(HeaderCacheHit)
		return c.Status(payload.StatusCode).JSON(payload)
	}
}

func buildErrorPayload(err error) errorPayload {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return errorPayload{
			StatusCode: fiberErr.Code,
			Error:      http.StatusText(fiberErr.Code),
			Message:    fiberErr.Message,
		}
	}

	payload := errorPayload{
		StatusCode: fiber.StatusInternalServerError,
		Error:      http.StatusText(fiber.StatusInternalServerError),
		Message:    err.Error(),
	}
	var transformErr *transform.Error
	if errors.As(err, &transformErr) {
		payload.Code = transformErr.Code
		payload.Message = transformErr.Message
	}
	return payload
}
