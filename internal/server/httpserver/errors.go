package httpserver

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/server/services"
	"github.com/gofiber/fiber/v3"
)

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler turns handler errors into status codes. Service sentinels
// map to 400/401/404; anything else is logged and reported as 500 without
// its text.
func (s *HTTPServer) errorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
	}

	var rl *services.RateLimitedError
	if errors.As(err, &rl) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(rl.RetryAfter))
	}

	code, msg := statusFor(err)
	if code == fiber.StatusServiceUnavailable {
		s.logger.Warn(c.Context(), "request deadline exceeded", "path", c.Path())
	}
	if code == fiber.StatusInternalServerError {
		s.logger.Error(c.Context(), "request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorBody{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrAlreadyVerified):
		return fiber.StatusBadRequest, common.ErrAlreadyVerified.Error()
	case errors.Is(err, common.ErrInvalidKey):
		return fiber.StatusBadRequest, common.ErrInvalidKey.Error()
	case errors.Is(err, common.ErrRateLimited):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrDeliveryFailed):
		return fiber.StatusBadRequest, common.ErrDeliveryFailed.Error()
	case errors.Is(err, common.ErrTokenExpired):
		return fiber.StatusUnauthorized, common.ErrTokenExpired.Error()
	case errors.Is(err, common.ErrInvalidToken):
		return fiber.StatusUnauthorized, common.ErrInvalidToken.Error()
	case errors.Is(err, common.ErrTokenReplay):
		return fiber.StatusUnauthorized, common.ErrTokenReplay.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, "request timed out"
	default:
		return fiber.StatusInternalServerError, common.ErrorInternal.Error()
	}
}
