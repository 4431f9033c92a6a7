package handlers

import (
	"errors"
	"fmt"

	"foodorder/internal/apperr"
	"foodorder/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:          fiber.StatusBadRequest,
	apperr.KindUnauthenticated:     fiber.StatusUnauthorized,
	apperr.KindInvalidCredential:   fiber.StatusUnauthorized,
	apperr.KindForbidden:           fiber.StatusForbidden,
	apperr.KindNotFound:            fiber.StatusNotFound,
	apperr.KindInvalidTransition:   fiber.StatusConflict,
	apperr.KindPaymentNotConfirmed: fiber.StatusConflict,
	apperr.KindUpstreamUnavailable: fiber.StatusServiceUnavailable,
	apperr.KindConflict:            fiber.StatusConflict,
	apperr.KindConfiguration:       fiber.StatusInternalServerError,
	apperr.KindInternal:            fiber.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// errorBody renders err without leaking internal details.
func errorBody(err error) fiber.Map {
	kind := apperr.KindOf(err)
	var ae *apperr.Error
	if !errors.As(err, &ae) || StatusFor(kind) >= fiber.StatusInternalServerError {
		return fiber.Map{"message": "Internal server error", "kind": apperr.KindInternal}
	}
	body := fiber.Map{"message": ae.Message, "kind": kind}
	if kind == apperr.KindUpstreamUnavailable {
		body["retryable"] = true
	}
	return body
}

// ErrorHandler is the application's Fiber error handler. Handlers return service errors
// as is and this renders them by kind.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		status := StatusFor(apperr.KindOf(err))
		fields := map[string]any{"method": c.Method(), "path": c.Path(), "status": status}
		if status >= fiber.StatusInternalServerError {
			log.Error("request_failed", logger.RequestID(c.UserContext()), "Request failed", err, fields)
		} else {
			log.Debug("request_rejected", logger.RequestID(c.UserContext()), err.Error(), fields)
		}
		return c.Status(status).JSON(errorBody(err))
	}
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
