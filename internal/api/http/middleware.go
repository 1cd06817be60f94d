package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// Order matters: the request logger sees the status written by the error handler.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

// writeError renders err as the failure envelope. Internal causes are logged,
// never sent to the client.
func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		// routing errors such as 404/405 from fiber itself
		return c.Status(fiberErr.Code).JSON(dto.Failure(fiberCode(fiberErr.Code), fiberErr.Message, nil))
	}

	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(routeOf(c), c.Method(), domainErr.Code)
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	} else if domainErr.Code == apperrors.CodeInvalidCredential {
		logger.Info("login rejected", zap.String("ip", c.IP()), zap.Error(err))
	}
	if domainErr.Code == apperrors.CodeRateLimited {
		if retry, ok := domainErr.Details["retry_after"].(int); ok {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprint(retry))
		}
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.Failure(domainErr.Code, domainErr.Message, domainErr.Details))
}

// fiberErrorHandler handles errors that escape the middleware chain, such as
// body parser failures raised before any route matched.
func fiberErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, metrics, err)
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperrors.CodeValidation
	}
	if status >= fiber.StatusInternalServerError {
		return apperrors.CodeInternal
	}
	return "HTTP_" + fmt.Sprint(status)
}

func routeOf(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}
