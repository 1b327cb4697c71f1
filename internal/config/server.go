package config

import (
	"QahwaBot/database/postgres"
	orderHandler "QahwaBot/internal/api/order/handler"
	orderRepository "QahwaBot/internal/api/order/repository"
	orderService "QahwaBot/internal/api/order/service"
	"QahwaBot/internal/middleware"
	"QahwaBot/pkg/gemini"
	"QahwaBot/pkg/openai"
	"QahwaBot/pkg/redis"
	"QahwaBot/pkg/utils"
	"QahwaBot/pkg/whatsapp"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	whatsappClient whatsapp.IWhatsappSender
	geminiClient   gemini.IGemini
	chatGPTClient  openai.IChatGPT
	orderServices  orderService.IOrderService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithWhatsappClient connects the WhatsApp transport. Optional: without it
// the webhook still works and replies only travel in the HTTP response,
// which is how local development and the test gateway run.
func WithWhatsappClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("WHATSAPP_ENABLED") != "true" {
			if s.log != nil {
				s.log.Info("WhatsApp client disabled, replies go out via HTTP only")
			}
			return nil
		}

		client, err := whatsapp.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
			}
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		s.whatsappClient = client
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithChatGPTClient() ServerOption {
	return func(s *Server) error {
		s.chatGPTClient = openai.NewChatGPT()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Order Domain
	orderRepo := orderRepository.New(s.db, s.log)
	s.orderServices = orderService.New(s.log, orderRepo, s.geminiClient, s.chatGPTClient, s.redisServer, s.utils)
	orderHandlers := orderHandler.New(s.log, s.validator, s.middleware, s.orderServices, s.whatsappClient)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, orderHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		s.Shutdown()
		return err
	}

	return nil
}

// Shutdown releases the background resources: the session sweeper and the
// WhatsApp socket.
func (s *Server) Shutdown() {
	if s.orderServices != nil {
		s.orderServices.Close()
	}
	if s.whatsappClient != nil {
		if err := s.whatsappClient.Disconnect(); err != nil {
			s.log.Errorf("Failed to disconnect WhatsApp client: %v", err)
		}
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
