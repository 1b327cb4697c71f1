package orderHandler

import (
	"QahwaBot/internal/api/order"
	contextPkg "QahwaBot/pkg/context"
	"QahwaBot/pkg/handlerUtil"
	"QahwaBot/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// HandleInboundMessage processes one delivery from the messaging gateway.
// The reply is returned in the response body and, when a WhatsApp client
// is connected, pushed to the user directly.
func (h *OrderHandler) HandleInboundMessage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing inbound message")

	var req order.InboundMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	reply, err := h.orderService.ProcessTurn(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_turn")
	}

	if !reply.Duplicate && reply.Text != "" && h.whatsappClient != nil && h.whatsappClient.IsConnected() {
		if err := h.whatsappClient.SendButtons(c, req.SenderID, reply.Text, reply.Buttons); err != nil {
			h.log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Failed to send WhatsApp reply")
		}
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, reply)
	}
}
