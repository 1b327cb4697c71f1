package orderHandler

import (
	contextPkg "QahwaBot/pkg/context"
	"QahwaBot/pkg/handlerUtil"
	"QahwaBot/pkg/log"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *OrderHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	phoneNumber := ctx.Params("phone_number")
	if phoneNumber == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("phone_number is required"), ctx.Path())
	}

	session, err := h.orderService.GetSession(c, phoneNumber)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, session)
}

func (h *OrderHandler) GetOpenOrder(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	phoneNumber := ctx.Params("phone_number")
	if phoneNumber == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("phone_number is required"), ctx.Path())
	}

	summary, err := h.orderService.GetOpenOrder(c, phoneNumber)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_open_order")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, summary)
}

func (h *OrderHandler) RemoveCartLine(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	phoneNumber := ctx.Params("phone_number")
	itemID := ctx.Params("item_id")
	if phoneNumber == "" || itemID == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("phone_number and item_id are required"), ctx.Path())
	}

	summary, err := h.orderService.RemoveCartLine(c, phoneNumber, itemID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "remove_cart_line")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"item_id":    itemID,
	}).Info("Cart line removed by ops")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, summary)
}

func (h *OrderHandler) DeleteSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	phoneNumber := ctx.Params("phone_number")
	if phoneNumber == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("phone_number is required"), ctx.Path())
	}

	if err := h.orderService.DeleteSession(c, phoneNumber); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "delete_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
	}).Info("Session deleted by ops")

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}

func (h *OrderHandler) SweepSessions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	result, err := h.orderService.SweepSessions(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "sweep_sessions")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}
