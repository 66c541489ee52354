package httpserver

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/server/audit"
	"github.com/gofiber/fiber/v3"
)

type localsKey string

const uidKey localsKey = "uid"

// requestMeta puts the caller's IP and user agent on the request context so
// audit records can carry them, and applies the per-request deadline.
func (s *HTTPServer) requestMeta(c fiber.Ctx) error {
	ctx := c.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	meta := audit.RequestMeta{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
	c.SetContext(audit.WithRequestMeta(ctx, meta))
	return c.Next()
}

// requireAccess admits requests that carry a valid access token and stores
// its subject for the handler.
func (s *HTTPServer) requireAccess(c fiber.Ctx) error {
	token := common.StripBearer(c.Get(common.AuthorizationHeaderName))
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	uid, err := s.svc.Sessions.VerifyAccess(token)
	if err != nil {
		return err
	}

	c.Locals(uidKey, uid)
	return c.Next()
}

func currentUID(c fiber.Ctx) string {
	uid, _ := c.Locals(uidKey).(string)
	return uid
}

// throttle applies the per-IP auth budget.
func (s *HTTPServer) throttle(route string) fiber.Handler {
	return func(c fiber.Ctx) error {
		ok, wait := s.limiters.Allow(c.IP())
		if ok {
			return c.Next()
		}
		s.metrics.Throttled(route)
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds(wait))
		return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Error: "too many requests"})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
