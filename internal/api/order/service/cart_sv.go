package orderService

import (
	"QahwaBot/internal/api/order"
	orderRepository "QahwaBot/internal/api/order/repository"
	"QahwaBot/internal/entity"
	"QahwaBot/pkg/response"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	persistAttempts   = 2
	persistRetryDelay = 150 * time.Millisecond
)

// retryPersist reruns an idempotent write once after a short pause.
// Domain sentinels are returned immediately; only infrastructure
// failures get a second attempt. Exhausting the attempts surfaces
// ErrPersistence, with the underlying cause in the log.
func (s *orderService) retryPersist(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var respErr *response.Error
		if errors.As(err, &respErr) {
			return err
		}
		if attempt < persistAttempts {
			s.log.WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Persistence write failed, retrying")
			select {
			case <-time.After(persistRetryDelay):
			case <-ctx.Done():
				return err
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"op":    op,
		"error": err.Error(),
	}).Error("Persistence write failed, giving up")
	return order.ErrPersistence
}

// loadOpenOrder fetches the user's open cart. A missing cart is not an
// error at this layer; the caller decides whether one must exist.
func (s *orderService) loadOpenOrder(ctx context.Context, repo orderRepository.Client, phoneNumber string) (entity.Order, bool, error) {
	openOrder, err := repo.Orders.GetOpenOrder(ctx, phoneNumber)
	if err != nil {
		if err == order.ErrOrderNotFound {
			return entity.Order{}, false, nil
		}
		return entity.Order{}, false, err
	}
	return openOrder, true, nil
}

// addItems merges the requested items into the open cart, creating the
// cart first when none exists. Adding an item already in the cart replaces
// its quantity rather than accumulating. The in-memory order is kept in
// sync with what was written so the caller can render the cart without a
// reread.
func (s *orderService) addItems(ctx context.Context, repo orderRepository.Client, cart *entity.Order, phoneNumber string, requests []entity.ItemRequest, menu entity.Menu) error {
	if len(requests) == 0 {
		return order.ErrItemNotFound
	}

	for _, req := range requests {
		if req.Quantity < entity.MinQuantity || req.Quantity > entity.MaxQuantity {
			return order.ErrInvalidQuantity
		}
		if _, ok := menu.ItemByID(req.ItemID); !ok {
			return order.ErrItemNotFound
		}
	}

	now := time.Now()

	if cart.ID == "" {
		id, err := s.utils.NewULIDFromTimestamp(now)
		if err != nil {
			return err
		}
		*cart = entity.Order{
			ID:          id,
			PhoneNumber: phoneNumber,
			Status:      entity.OrderStatusOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.retryPersist(ctx, "create_order", func() error {
			return repo.Orders.CreateOrder(ctx, *cart)
		}); err != nil {
			return err
		}
	}

	for _, req := range requests {
		item, _ := menu.ItemByID(req.ItemID)
		line := entity.OrderLine{
			OrderID:   cart.ID,
			ItemID:    item.ID,
			ItemName:  item.NameEN,
			Quantity:  req.Quantity,
			UnitPrice: item.Price,
			CreatedAt: now,
		}
		if err := s.retryPersist(ctx, "upsert_line", func() error {
			return repo.Orders.UpsertLine(ctx, line)
		}); err != nil {
			return err
		}

		if existing := cart.FindLine(item.ID); existing != nil {
			existing.Quantity = req.Quantity
		} else {
			line.Position = len(cart.Lines) + 1
			cart.Lines = append(cart.Lines, line)
		}
	}

	cart.UpdatedAt = now
	return nil
}

// removeLine drops one cart line by item id.
func (s *orderService) removeLine(ctx context.Context, repo orderRepository.Client, cart *entity.Order, itemID string) error {
	if cart.FindLine(itemID) == nil {
		return order.ErrItemNotFound
	}

	if err := repo.Orders.DeleteLine(ctx, cart.ID, itemID); err != nil {
		return err
	}

	for i := range cart.Lines {
		if cart.Lines[i].ItemID == itemID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			break
		}
	}
	return nil
}

// removeLastLine drops the most recently added line, for the back action
// out of the more-items step.
func (s *orderService) removeLastLine(ctx context.Context, repo orderRepository.Client, cart *entity.Order) error {
	if cart.ID == "" || len(cart.Lines) == 0 {
		return nil
	}

	itemID, err := repo.Orders.DeleteLastLine(ctx, cart.ID)
	if err != nil {
		return err
	}

	for i := len(cart.Lines) - 1; i >= 0; i-- {
		if cart.Lines[i].ItemID == itemID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			break
		}
	}
	return nil
}

// setServiceAndLocation records the fulfilment choice. Dine-in locations
// are table numbers and must fall inside the cafe's actual table range;
// delivery takes the address text as given.
func (s *orderService) setServiceAndLocation(ctx context.Context, repo orderRepository.Client, cart *entity.Order, serviceType entity.ServiceType, location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return order.ErrInvalidLocation
	}

	if serviceType == entity.ServiceDineIn {
		table, err := strconv.Atoi(location)
		if err != nil || table < entity.MinTableNumber || table > entity.MaxTableNumber {
			return order.ErrInvalidLocation
		}
		location = strconv.Itoa(table)
	}

	if err := s.retryPersist(ctx, "set_service_location", func() error {
		return repo.Orders.SetServiceAndLocation(ctx, cart.ID, serviceType, location)
	}); err != nil {
		return err
	}

	cart.ServiceType = serviceType
	cart.Location = location
	return nil
}

// finalizeOrder confirms the cart inside a transaction. An empty cart can
// never be confirmed.
func (s *orderService) finalizeOrder(ctx context.Context, phoneNumber string, cart *entity.Order) error {
	if cart.ID == "" || len(cart.Lines) == 0 {
		return order.ErrEmptyOrder
	}

	repo, err := s.orderRepo.NewClient(true)
	if err != nil {
		return err
	}

	if err := repo.Orders.SetStatus(ctx, cart.ID, entity.OrderStatusConfirmed); err != nil {
		repo.Rollback()
		return err
	}
	if err := repo.Sessions.DeleteSession(ctx, phoneNumber); err != nil && err != order.ErrSessionNotFound {
		repo.Rollback()
		return err
	}
	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"order_id": cart.ID,
			"error":    err.Error(),
		}).Error("Failed to commit order confirmation")
		return err
	}

	cart.Status = entity.OrderStatusConfirmed
	return nil
}

// cancelOrder archives the cart as cancelled, if one exists, and clears
// the persisted session in the same transaction.
func (s *orderService) cancelOrder(ctx context.Context, phoneNumber string, cart *entity.Order) error {
	repo, err := s.orderRepo.NewClient(true)
	if err != nil {
		return err
	}

	if cart.ID != "" {
		if err := repo.Orders.SetStatus(ctx, cart.ID, entity.OrderStatusCancelled); err != nil {
			repo.Rollback()
			return err
		}
	}
	if err := repo.Sessions.DeleteSession(ctx, phoneNumber); err != nil && err != order.ErrSessionNotFound {
		repo.Rollback()
		return err
	}
	if err := repo.Commit(); err != nil {
		return err
	}

	if cart.ID != "" {
		cart.Status = entity.OrderStatusCancelled
	}
	return nil
}
