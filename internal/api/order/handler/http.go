package orderHandler

import (
	orderService "QahwaBot/internal/api/order/service"
	"QahwaBot/internal/middleware"
	"QahwaBot/pkg/whatsapp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type OrderHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	orderService   orderService.IOrderService
	whatsappClient whatsapp.IWhatsappSender
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	os orderService.IOrderService,
	wa whatsapp.IWhatsappSender,
) *OrderHandler {
	return &OrderHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		orderService:   os,
		whatsappClient: wa,
	}
}

func (h *OrderHandler) Start(srv fiber.Router) {
	orders := srv.Group("/orders")

	// Inbound messages from the gateway
	orders.Post("/webhook", h.middleware.NewRateLimiter, h.HandleInboundMessage)

	// Staff tooling
	ops := orders.Group("/ops")
	ops.Use(h.middleware.NewTokenMiddleware)
	ops.Get("/sessions/:phone_number", h.GetSession)
	ops.Delete("/sessions/:phone_number", h.DeleteSession)
	ops.Post("/sessions/sweep", h.SweepSessions)
	ops.Get("/carts/:phone_number", h.GetOpenOrder)
	ops.Delete("/carts/:phone_number/lines/:item_id", h.RemoveCartLine)
}
