package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/geo"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/sla"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
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
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := ToDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// ToDomainError maps errors raised anywhere below the handlers, including
// fiber's own routing errors, onto the API error taxonomy.
func ToDomainError(err error) *apperrors.DomainError {
	return apperrors.ToDomainError(err, mapCoreError, mapFiberError)
}

func mapCoreError(err error) *apperrors.DomainError {
	switch {
	case errors.Is(err, sla.ErrInvalidPriority):
		return apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"}).Wrap(err)
	case errors.Is(err, sla.ErrInvalidTimestamp):
		return apperrors.NewValidationError("invalid timestamp", map[string]any{"field": "created_at"}).Wrap(err)
	case errors.Is(err, sla.ErrInvalidSLAConfig):
		return apperrors.NewUnprocessable("INVALID_SLA_CONFIG", "sla policy is not usable", nil).Wrap(err)
	case errors.Is(err, chatcmd.ErrMalformedCommand), errors.Is(err, chatcmd.ErrUnrecognizedCommand):
		return apperrors.NewValidationError(chatcmd.Cause(err), nil).Wrap(err)
	case errors.Is(err, geo.ErrDenied), errors.Is(err, geo.ErrTimeout), errors.Is(err, geo.ErrUnavailable):
		return apperrors.NewValidationError(chatcmd.Cause(err), map[string]any{"field": "geo"}).Wrap(err)
	case errors.Is(err, domain.ErrShiftAlreadyOpen), errors.Is(err, domain.ErrNoOpenShift),
		errors.Is(err, chatcmd.ErrCommandInProgress):
		return apperrors.NewConflict(chatcmd.Cause(err), nil).Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewDomainError("TIMEOUT", "request timed out", fiber.StatusGatewayTimeout, nil).Wrap(err)
	}
	return nil
}

func mapFiberError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return nil
	}
	code := "HTTP_ERROR"
	switch fe.Code {
	case fiber.StatusNotFound:
		code = "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		code = "VALIDATION_FAILED"
	}
	return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
}
