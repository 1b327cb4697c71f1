package orderService

import (
	"QahwaBot/internal/api/order"
	orderRepository "QahwaBot/internal/api/order/repository"
	"QahwaBot/internal/entity"
	"QahwaBot/pkg/gemini"
	"QahwaBot/pkg/openai"
	"QahwaBot/pkg/redis"
	"QahwaBot/pkg/utils"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type IOrderService interface {
	ProcessTurn(ctx context.Context, req order.InboundMessageRequest) (*order.TurnReply, error)
	GetSession(ctx context.Context, phoneNumber string) (*order.SessionResponse, error)
	GetOpenOrder(ctx context.Context, phoneNumber string) (*order.OrderSummaryResponse, error)
	RemoveCartLine(ctx context.Context, phoneNumber, itemID string) (*order.OrderSummaryResponse, error)
	DeleteSession(ctx context.Context, phoneNumber string) error
	SweepSessions(ctx context.Context) (*order.SweepResponse, error)
	Close()
}

type orderService struct {
	log       *logrus.Logger
	orderRepo orderRepository.Repository
	registry  *SessionRegistry
	steps     *StepGraph
	resolver  *IntentResolver
	history   redis.IRedis
	chatGPT   openai.IChatGPT
	utils     utils.IUtils

	menuMu     sync.RWMutex
	menu       entity.Menu
	menuMaxAge time.Duration
}

func New(
	log *logrus.Logger,
	orderRepo orderRepository.Repository,
	classifier gemini.IGemini,
	chatGPT openai.IChatGPT,
	history redis.IRedis,
	utilsPkg utils.IUtils,
) IOrderService {
	registry := NewSessionRegistry(log)
	steps := NewStepGraph()

	s := &orderService{
		log:        log,
		orderRepo:  orderRepo,
		registry:   registry,
		steps:      steps,
		resolver:   NewIntentResolver(log, classifier, steps),
		history:    history,
		chatGPT:    chatGPT,
		utils:      utilsPkg,
		menuMaxAge: 5 * time.Minute,
	}

	registry.StartSweeper()
	return s
}

func (s *orderService) Close() {
	s.registry.StopSweeper()
}

// currentMenu returns the cached menu snapshot, reloading from the
// repository when the cache is stale. A load failure keeps serving the
// previous snapshot.
func (s *orderService) currentMenu(ctx context.Context) entity.Menu {
	s.menuMu.RLock()
	menu := s.menu
	s.menuMu.RUnlock()

	if !menu.LoadedAt.IsZero() && time.Since(menu.LoadedAt) < s.menuMaxAge {
		return menu
	}

	repo, err := s.orderRepo.NewClient(false)
	if err != nil {
		return menu
	}

	fresh, err := repo.Menu.LoadMenu(ctx)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to refresh menu snapshot")
		return menu
	}

	s.menuMu.Lock()
	s.menu = fresh
	s.menuMu.Unlock()
	return fresh
}
