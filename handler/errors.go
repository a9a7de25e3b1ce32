package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"spaceapps-board/internal/usecase"
)

// fail maps a use-case error to a status and a fixed message. The cause is
// logged, never returned.
func (h *Handler) fail(c *fiber.Ctx, err error, internalMsg string) error {
	status, msg := fiber.StatusInternalServerError, internalMsg

	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecase.ErrorInvalidInput:
			status, msg = fiber.StatusBadRequest, msgFieldsRequired
		case usecase.ErrorNotFound:
			status, msg = fiber.StatusNotFound, msgNotFound
		}
	}

	if status >= fiber.StatusInternalServerError {
		h.log.Error("request failed", "correlation_id", correlationIDOf(c), "method", c.Method(), "path", c.Path(), "err", err)
	} else {
		h.log.Debug("request rejected", "correlation_id", correlationIDOf(c), "status", status, "err", err)
	}
	return c.Status(status).JSON(errorResponse{Error: msg})
}

// errorHandler is the last stage of the pipeline: anything a route returned
// instead of writing a response, including recovered panics.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: msgRouteNotFound})
	}
	h.log.Error("unhandled request error", "correlation_id", correlationIDOf(c), "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: msgInternal})
}
