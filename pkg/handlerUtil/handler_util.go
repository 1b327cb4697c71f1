package handlerUtil

import (
	"QahwaBot/internal/api/order"
	"QahwaBot/pkg/log"
	"QahwaBot/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	if errors.Is(err, order.ErrBusy) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("User turn still in flight")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"message": "A previous message is still being processed",
			"code":    "TURN_IN_FLIGHT",
		})
	}

	if errors.Is(err, order.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Session not found",
			"code":    "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, order.ErrOrderNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Order not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Order not found",
			"code":    "ORDER_NOT_FOUND",
		})
	}

	if errors.Is(err, order.ErrItemNotFound) || errors.Is(err, order.ErrCategoryNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Menu lookup failed")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not on the menu",
			"code":    "MENU_ENTRY_NOT_FOUND",
		})
	}

	if errors.Is(err, order.ErrEmptyOrder) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Attempted to confirm an empty order")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Order has no items",
			"code":    "EMPTY_ORDER",
		})
	}

	if errors.Is(err, order.ErrInvalidQuantity) || errors.Is(err, order.ErrInvalidLocation) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid order input")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
			"code":    "INVALID_ORDER_INPUT",
		})
	}

	if errors.Is(err, order.ErrIllegalTransition) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Illegal step transition")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Action not allowed at this step",
			"code":    "ILLEGAL_TRANSITION",
		})
	}

	if errors.Is(err, order.ErrClassifierUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Classifier unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Language service unavailable",
			"code":    "CLASSIFIER_UNAVAILABLE",
		})
	}

	if errors.Is(err, order.ErrMalformedClassifierData) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Malformed classifier output")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Language service returned malformed data",
			"code":    "MALFORMED_CLASSIFIER_DATA",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"code":    "INTERNAL_ERROR",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": err.Error(),
		"code":    "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"message": "Request timed out",
		"code":    "REQUEST_TIMEOUT",
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
	}).Warn("Unauthorized request")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"code":    "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
